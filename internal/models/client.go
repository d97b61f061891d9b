package models

// Client is a horse owner the farrier works for.
type Client struct {
	ID        string   `gorm:"primaryKey;size:64" json:"id"`
	UserID    string   `gorm:"size:64;not null;index" json:"user_id"`
	Name      string   `gorm:"size:255;not null;index" json:"name"`
	Email     string   `gorm:"size:255" json:"email"`
	Phone     string   `gorm:"size:50" json:"phone"`
	Address   string   `gorm:"size:500" json:"address"`
	City      string   `gorm:"size:100" json:"city"`
	State     string   `gorm:"size:50" json:"state"`
	ZipCode   string   `gorm:"size:20" json:"zip_code"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Notes     string   `gorm:"type:text" json:"notes"`
	IsActive  bool     `gorm:"index" json:"is_active"`

	SyncState

	Horses []Horse `gorm:"foreignKey:ClientID" json:"-"`
}

// TableName specifies the table name for GORM.
func (Client) TableName() string {
	return "clients"
}

// EntityType implements Syncable.
func (c *Client) EntityType() EntityType { return EntityClient }

// SyncID implements Syncable.
func (c *Client) SyncID() string { return c.ID }

// ClientPayload is the snapshot of a client sent to the backend.
type ClientPayload struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	ZipCode   string   `json:"zip_code,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	IsActive  bool     `json:"is_active"`
	UpdatedAt string   `json:"updated_at"`
}

// SyncPayload implements Syncable.
func (c *Client) SyncPayload() any {
	return ClientPayload{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		ZipCode:   c.ZipCode,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		IsActive:  c.IsActive,
		UpdatedAt: formatTimestamp(c.UpdatedAt),
	}
}

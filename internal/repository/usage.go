package repository

import (
	"context"
	"fmt"
)

// UsageRepository counts reminder texts per calendar month. The counter is
// local to the device and never synced.
type UsageRepository struct {
	*base
}

// RecordSms adds n sent texts to the current month.
func (r *UsageRepository) RecordSms(ctx context.Context, s Session, n int) error {
	if err := s.validate(); err != nil {
		return err
	}
	if n <= 0 {
		return invalid("text count must be positive")
	}
	if err := r.read(ctx).IncrementSmsUsage(s.UserID, r.now(), n); err != nil {
		return fmt.Errorf("record sms usage: %w", err)
	}
	return nil
}

// SmsThisMonth returns how many texts were recorded in the current month.
func (r *UsageRepository) SmsThisMonth(ctx context.Context, s Session) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	return r.read(ctx).GetSmsUsage(s.UserID, r.now())
}

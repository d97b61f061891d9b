// Package prefs stores device preferences in a YAML file.
//
// Values are read and written through viper. Observers are notified when a
// value changes through Set or when the file is edited on disk.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Preference keys.
const (
	KeyAppointmentDuration = "appointments.default_duration_minutes"
	KeyShoeingCycleWeeks   = "horses.shoeing_cycle_weeks"
	KeyReminderDays        = "reminders.days_before"
	KeyNotifyReminders     = "notifications.reminders"
	KeyNotifySyncFailures  = "notifications.sync_failures"
	KeyTheme               = "display.theme"
)

var (
	// ErrUnknownKey is returned for keys outside the preference set.
	ErrUnknownKey = errors.New("unknown preference")
	// ErrInvalidValue is returned when a value has the wrong type or range.
	ErrInvalidValue = errors.New("invalid preference value")
)

type kind int

const (
	kindInt kind = iota
	kindBool
	kindString
)

type spec struct {
	kind    kind
	def     any
	min     int
	choices []string
}

var specs = map[string]spec{
	KeyAppointmentDuration: {kind: kindInt, def: 60, min: 5},
	KeyShoeingCycleWeeks:   {kind: kindInt, def: 6, min: 1},
	KeyReminderDays:        {kind: kindInt, def: 2, min: 0},
	KeyNotifyReminders:     {kind: kindBool, def: true},
	KeyNotifySyncFailures:  {kind: kindBool, def: true},
	KeyTheme:               {kind: kindString, def: "system", choices: []string{"system", "light", "dark"}},
}

// Keys returns every preference key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Default returns the built-in value of key.
func Default(key string) (any, error) {
	sp, ok := specs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return sp.def, nil
}

// Store is a preference file with change observers.
type Store struct {
	path string

	mu     sync.Mutex
	v      *viper.Viper
	values map[string]any
	subs   map[int]*subscriber
	nextID int

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

type subscriber struct {
	key string
	ch  chan any
}

// Open loads the preference file at path, writing defaults when it does not
// exist yet.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create prefs directory: %w", err)
	}
	s := &Store{
		path: filepath.Clean(path),
		subs: make(map[int]*subscriber),
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		v := newViper(s.path)
		if err := v.WriteConfigAs(s.path); err != nil {
			return nil, fmt.Errorf("write default prefs: %w", err)
		}
	}

	v, err := load(s.path)
	if err != nil {
		return nil, err
	}
	s.v = v
	s.values = snapshot(v)
	return s, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for key, sp := range specs {
		v.SetDefault(key, sp.def)
	}
	return v
}

func load(path string) (*viper.Viper, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	return v, nil
}

func snapshot(v *viper.Viper) map[string]any {
	values := make(map[string]any, len(specs))
	for key, sp := range specs {
		switch sp.kind {
		case kindInt:
			values[key] = v.GetInt(key)
		case kindBool:
			values[key] = v.GetBool(key)
		default:
			values[key] = v.GetString(key)
		}
	}
	return values
}

// Path returns the preference file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current value of key.
func (s *Store) Get(key string) (any, error) {
	if _, ok := specs[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// All returns a copy of every preference value.
func (s *Store) All() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Int returns an integer preference, or zero for keys of another kind.
func (s *Store) Int(key string) int {
	v, _ := s.Get(key)
	n, _ := v.(int)
	return n
}

// Bool returns a boolean preference.
func (s *Store) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// String returns a string preference.
func (s *Store) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// AppointmentDuration returns the default appointment length in minutes.
func (s *Store) AppointmentDuration() int { return s.Int(KeyAppointmentDuration) }

// ShoeingCycleWeeks returns the account default shoeing cycle.
func (s *Store) ShoeingCycleWeeks() int { return s.Int(KeyShoeingCycleWeeks) }

// ReminderDays returns how many days before a visit reminders go out.
func (s *Store) ReminderDays() int { return s.Int(KeyReminderDays) }

// Set validates value, persists it and notifies observers of key. Strings
// are parsed for integer and boolean keys.
func (s *Store) Set(key string, value any) error {
	sp, ok := specs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	val, err := normalize(key, sp, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, val)
	if err := s.v.WriteConfig(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	// Start from the file so later external edits are not shadowed by the
	// in-memory override.
	v, err := load(s.path)
	if err != nil {
		return err
	}
	s.v = v
	s.apply(snapshot(v))
	return nil
}

// Reset restores key to its default.
func (s *Store) Reset(key string) error {
	def, err := Default(key)
	if err != nil {
		return err
	}
	return s.Set(key, def)
}

func normalize(key string, sp spec, value any) (any, error) {
	if str, ok := value.(string); ok {
		str = strings.TrimSpace(str)
		switch sp.kind {
		case kindInt:
			n, err := strconv.Atoi(str)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %q is not a whole number", ErrInvalidValue, key, str)
			}
			value = n
		case kindBool:
			b, err := strconv.ParseBool(str)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %q is not true or false", ErrInvalidValue, key, str)
			}
			value = b
		default:
			value = str
		}
	}

	switch sp.kind {
	case kindInt:
		n, ok := value.(int)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want a whole number, got %T", ErrInvalidValue, key, value)
		}
		if n < sp.min {
			return nil, fmt.Errorf("%w: %s: must be at least %d", ErrInvalidValue, key, sp.min)
		}
		return n, nil
	case kindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want true or false, got %T", ErrInvalidValue, key, value)
		}
		return b, nil
	default:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want text, got %T", ErrInvalidValue, key, value)
		}
		if len(sp.choices) > 0 && !slices.Contains(sp.choices, str) {
			return nil, fmt.Errorf("%w: %s: must be one of %s", ErrInvalidValue, key, strings.Join(sp.choices, ", "))
		}
		return str, nil
	}
}

// apply swaps in values and notifies observers of keys that changed.
// Caller holds s.mu.
func (s *Store) apply(values map[string]any) {
	old := s.values
	s.values = values
	for _, sub := range s.subs {
		if !reflect.DeepEqual(old[sub.key], values[sub.key]) {
			offer(sub.ch, values[sub.key])
		}
	}
}

// offer replaces any unread value in ch with v.
func offer(ch chan any, v any) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Observe returns a channel that receives the current value of key, then
// every new value. A slow reader only sees the latest. The channel is closed
// when ctx is done.
func (s *Store) Observe(ctx context.Context, key string) (<-chan any, error) {
	if _, ok := specs[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	ch := make(chan any, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscriber{key: key, ch: ch}
	ch <- s.values[key]
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// Reload rereads the file and notifies observers of changed keys.
func (s *Store) Reload() error {
	v, err := load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	s.apply(snapshot(v))
	return nil
}

// Watch starts reloading the file whenever it changes on disk.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prefs watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = watcher
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.processEvents(watcher, s.done)
	return nil
}

func (s *Store) processEvents(watcher *fsnotify.Watcher, done chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// A half-written file fails to parse; the next write event retries.
			_ = s.Reload()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the file watcher. Observers stay registered until their
// contexts end.
func (s *Store) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	done := s.done
	s.watcher = nil
	s.mu.Unlock()
	if watcher == nil {
		return nil
	}
	close(done)
	err := watcher.Close()
	s.wg.Wait()
	return err
}

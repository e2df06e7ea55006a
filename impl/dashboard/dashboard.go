package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"bklreg/entity"
	"bklreg/lib/clock"
	"bklreg/lib/sl"
)

// Store is the slice of the registration store the admin view consumes.
type Store interface {
	GetRegistrations(ctx context.Context) ([]entity.Registration, error)
	SetRegistrationStatus(ctx context.Context, key string, status entity.Status) error
	DeleteRegistration(ctx context.Context, key string) error
}

// Dashboard owns the loaded full set. Mutations go to the store first and
// touch the local copy only on success, so a failed call leaves the view
// exactly as it was.
type Dashboard struct {
	store Store
	log   *slog.Logger

	mu   sync.RWMutex
	full []entity.Registration // creation time descending
}

func New(store Store, log *slog.Logger) *Dashboard {
	return &Dashboard{
		store: store,
		log:   log.With(sl.Module("dashboard")),
	}
}

// Refresh reloads the full set. On failure the previously loaded set stays
// visible and the error is surfaced.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if d.store == nil {
		return fmt.Errorf("store not connected")
	}
	regs, err := d.store.GetRegistrations(ctx)
	if err != nil {
		d.log.Error("refresh", sl.Err(err))
		return err
	}
	d.mu.Lock()
	d.full = regs
	d.mu.Unlock()
	d.log.Debug("set refreshed", slog.Int("count", len(regs)))
	return nil
}

// Rows filters the full set by term and returns the visible rows. The gift
// rank on each row is the record's 0-indexed position in the FULL
// creation-descending set, never in the filtered view, so filtering cannot
// change anyone's eligibility.
func (d *Dashboard) Rows(term string) []entity.RegistrationRow {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows := make([]entity.RegistrationRow, 0, len(d.full))
	for i, reg := range d.full {
		if !matches(&reg, term) {
			continue
		}
		rows = append(rows, entity.RegistrationRow{
			Registration: reg,
			GiftRank:     i,
			GiftEligible: i < entity.GiftEligibleCount,
		})
	}
	return rows
}

// matches is the search predicate: case-insensitive substring against
// name, mobile, registration number or address.
func matches(reg *entity.Registration, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(reg.Name), term) ||
		strings.Contains(reg.Mobile, term) ||
		strings.Contains(strings.ToLower(reg.RegistrationNumber), term) ||
		strings.Contains(strings.ToLower(reg.Address), term)
}

// Stats summarizes the full set for the dashboard cards.
func (d *Dashboard) Stats() entity.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := entity.Stats{Total: len(d.full)}
	if s.Total < entity.GiftEligibleCount {
		s.GiftEligible = s.Total
	} else {
		s.GiftEligible = entity.GiftEligibleCount
	}
	for _, reg := range d.full {
		switch reg.Gender {
		case "male":
			s.Male++
		case "female":
			s.Female++
		}
	}
	return s
}

// SetStatus updates one record's status. Re-applying the current status is
// a no-op change. The local copy mutates only after the store accepted the
// update.
func (d *Dashboard) SetStatus(ctx context.Context, key string, status entity.Status) error {
	if d.store == nil {
		return fmt.Errorf("store not connected")
	}
	if !status.Valid() {
		return &entity.ValidationError{Reason: fmt.Errorf("unknown status %q", status)}
	}
	if err := d.store.SetRegistrationStatus(ctx, key, status); err != nil {
		d.log.Error("set status", sl.Err(err))
		return err
	}
	d.mu.Lock()
	for i := range d.full {
		if d.full[i].StorageKey == key {
			d.full[i].Status = status
			break
		}
	}
	d.mu.Unlock()
	d.log.Info("status updated",
		slog.String("key", key), slog.String("status", string(status)))
	return nil
}

// Delete permanently removes one record from the store and, on success,
// from the loaded set. There is no tombstone and no undo.
func (d *Dashboard) Delete(ctx context.Context, key string) error {
	if d.store == nil {
		return fmt.Errorf("store not connected")
	}
	if err := d.store.DeleteRegistration(ctx, key); err != nil {
		d.log.Error("delete", sl.Err(err))
		return err
	}
	d.mu.Lock()
	for i := range d.full {
		if d.full[i].StorageKey == key {
			d.full = append(d.full[:i], d.full[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
	d.log.Info("registration deleted", slog.String("key", key))
	return nil
}

var csvHeader = []string{
	"Registration Number", "Name", "Age", "Gender", "Mobile",
	"Address", "Status", "Phone Verified", "Registration Date",
}

// ExportCSV writes the currently visible (filtered) rows. Every field is
// double-quoted unconditionally, which rules out encoding/csv: it quotes
// only when the content forces it.
func (d *Dashboard) ExportCSV(w io.Writer, term string) error {
	rows := d.Rows(term)

	if err := writeCsvLine(w, csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		verified := "No"
		if row.PhoneVerified {
			verified = "Yes"
		}
		created := "N/A"
		if !row.CreatedAt.IsZero() {
			created = row.CreatedAt.Format("02/01/2006")
		}
		line := []string{
			row.RegistrationNumber, row.Name, row.Age, row.Gender,
			row.Mobile, row.Address, string(row.Status), verified, created,
		}
		if err := writeCsvLine(w, line); err != nil {
			return err
		}
	}
	d.log.Info("csv exported", slog.Int("rows", len(rows)))
	return nil
}

func writeCsvLine(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := fmt.Fprintln(w, strings.Join(quoted, ","))
	return err
}

// ExportFilename is the attachment name for the current day's export.
func ExportFilename() string {
	return fmt.Sprintf("karate_registrations_%s.csv", clock.Today())
}

package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bklreg/entity"
)

// fakeStore serves a mutable record list ordered newest first, the way the
// real store returns it.
type fakeStore struct {
	regs      []entity.Registration
	listErr   error
	updateErr error
	deleteErr error
	updates   int
}

func (f *fakeStore) GetRegistrations(_ context.Context) ([]entity.Registration, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]entity.Registration, len(f.regs))
	copy(out, f.regs)
	return out, nil
}

func (f *fakeStore) SetRegistrationStatus(_ context.Context, key string, status entity.Status) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	for i := range f.regs {
		if f.regs[i].StorageKey == key {
			f.regs[i].Status = status
		}
	}
	return nil
}

func (f *fakeStore) DeleteRegistration(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.regs {
		if f.regs[i].StorageKey == key {
			f.regs = append(f.regs[:i], f.regs[i+1:]...)
			return nil
		}
	}
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(i int) entity.Registration {
	return entity.Registration{
		StorageKey:         fmt.Sprintf("key-%03d", i),
		Name:               fmt.Sprintf("Participant %03d", i),
		Age:                "18",
		Gender:             []string{"male", "female"}[i%2],
		Address:            fmt.Sprintf("Ward %d Guwahati", i),
		Mobile:             fmt.Sprintf("98765%05d", i),
		PhoneVerified:      true,
		RegistrationNumber: fmt.Sprintf("BKL%06d", i),
		Status:             entity.StatusRegistered,
		CreatedAt:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(-time.Duration(i) * time.Minute),
	}
}

func loaded(t *testing.T, n int) (*Dashboard, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	for i := 0; i < n; i++ {
		store.regs = append(store.regs, record(i))
	}
	d := New(store, discard())
	require.NoError(t, d.Refresh(context.Background()))
	return d, store
}

func TestRefreshFailureKeepsPreviousSet(t *testing.T) {
	d, store := loaded(t, 5)

	store.listErr = &entity.StoreError{Op: "list", Reason: fmt.Errorf("down")}
	require.Error(t, d.Refresh(context.Background()))
	assert.Len(t, d.Rows(""), 5, "previous visible set stays intact")
}

func TestFilterMatchesAcrossFields(t *testing.T) {
	d, _ := loaded(t, 20)

	// case-insensitive name match
	assert.Len(t, d.Rows("participant 003"), 1)
	// mobile substring
	assert.Len(t, d.Rows("9876500007"), 1)
	// registration number, mixed case
	assert.Len(t, d.Rows("bkl000011"), 1)
	// address
	assert.Len(t, d.Rows("Ward 15"), 1)

	// a term matching nothing yields an empty view but the set is intact
	assert.Empty(t, d.Rows("no-such-thing"))
	assert.Len(t, d.Rows(""), 20)
}

func TestGiftRankOverFullSet(t *testing.T) {
	d, _ := loaded(t, 151)

	rows := d.Rows("")
	require.Len(t, rows, 151)
	for i, row := range rows {
		assert.Equal(t, i, row.GiftRank)
		assert.Equal(t, i < 100, row.GiftEligible, "rank %d", i)
	}

	// the rank comes from the full ordered set even when filtering hides
	// everyone ranked before
	filtered := d.Rows("Participant 150")
	require.Len(t, filtered, 1)
	assert.Equal(t, 150, filtered[0].GiftRank)
	assert.False(t, filtered[0].GiftEligible)
}

func TestExportCsv(t *testing.T) {
	d, _ := loaded(t, 20)

	var buf strings.Builder
	require.NoError(t, d.ExportCSV(&buf, "Participant 00"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 11, "header plus the 10 filtered rows")

	assert.Equal(t,
		`"Registration Number","Name","Age","Gender","Mobile","Address","Status","Phone Verified","Registration Date"`,
		lines[0])

	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		require.Len(t, fields, 9)
		for _, f := range fields {
			assert.True(t, strings.HasPrefix(f, `"`) && strings.HasSuffix(f, `"`),
				"every field is quoted unconditionally: %s", f)
		}
	}
	assert.Equal(t, `"BKL000000"`, strings.Split(lines[1], ",")[0])
	assert.Equal(t, `"Yes"`, strings.Split(lines[1], ",")[7])
	assert.Equal(t, `"01/06/2025"`, strings.Split(lines[1], ",")[8])
}

func TestExportCsvMissingDate(t *testing.T) {
	store := &fakeStore{regs: []entity.Registration{record(0)}}
	store.regs[0].CreatedAt = time.Time{}
	d := New(store, discard())
	require.NoError(t, d.Refresh(context.Background()))

	var buf strings.Builder
	require.NoError(t, d.ExportCSV(&buf, ""))
	assert.Contains(t, buf.String(), `"N/A"`)
}

func TestSetStatus(t *testing.T) {
	d, store := loaded(t, 5)

	require.NoError(t, d.SetStatus(context.Background(), "key-002", entity.StatusConfirmed))
	rows := d.Rows("Participant 002")
	require.Len(t, rows, 1)
	assert.Equal(t, entity.StatusConfirmed, rows[0].Status, "reflected in-memory immediately")

	// idempotent re-apply
	require.NoError(t, d.SetStatus(context.Background(), "key-002", entity.StatusConfirmed))
	assert.Equal(t, entity.StatusConfirmed, d.Rows("Participant 002")[0].Status)
	assert.Equal(t, 2, store.updates)
}

func TestSetStatusFailureLeavesLocalState(t *testing.T) {
	d, store := loaded(t, 5)

	store.updateErr = &entity.StoreError{Op: "update", Reason: fmt.Errorf("down")}
	require.Error(t, d.SetStatus(context.Background(), "key-002", entity.StatusCancelled))
	assert.Equal(t, entity.StatusRegistered, d.Rows("Participant 002")[0].Status)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	d, store := loaded(t, 3)

	err := d.SetStatus(context.Background(), "key-001", entity.Status("archived"))
	var validationErr *entity.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, store.updates)
}

func TestDelete(t *testing.T) {
	d, _ := loaded(t, 5)

	require.NoError(t, d.Delete(context.Background(), "key-002"))
	assert.Len(t, d.Rows(""), 4)
	assert.Empty(t, d.Rows("Participant 002"))

	// a fresh load from the store does not bring it back
	require.NoError(t, d.Refresh(context.Background()))
	assert.Empty(t, d.Rows("Participant 002"))
}

func TestDeleteFailureLeavesState(t *testing.T) {
	d, store := loaded(t, 5)

	store.deleteErr = &entity.StoreError{Op: "remove", Reason: fmt.Errorf("down")}
	require.Error(t, d.Delete(context.Background(), "key-002"))
	assert.Len(t, d.Rows(""), 5)
}

func TestStats(t *testing.T) {
	d, _ := loaded(t, 151)

	s := d.Stats()
	assert.Equal(t, 151, s.Total)
	assert.Equal(t, 100, s.GiftEligible)
	assert.Equal(t, 76, s.Male)
	assert.Equal(t, 75, s.Female)

	small, _ := loaded(t, 7)
	assert.Equal(t, 7, small.Stats().GiftEligible)
}

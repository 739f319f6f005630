package patient

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/patientdesk/patientdesk/internal/domain/address"
	"github.com/patientdesk/patientdesk/internal/domain/diagnosis"
	"github.com/patientdesk/patientdesk/internal/domain/errs"
)

// -- Pass-through tx runner --

type passTxRunner struct{}

func (passTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Mock patient repository --

type mockPatientRepo struct {
	patients map[int64]*Patient
	nextID   int64
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[int64]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) (int64, error) {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.patients[p.ID] = &cp
	return p.ID, nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) FindIDByKey(_ context.Context, key CandidateKey, excludeID int64) (int64, bool, error) {
	for id, p := range m.patients {
		if id != excludeID && p.Key() == key {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) (bool, error) {
	if _, ok := m.patients[p.ID]; !ok {
		return false, nil
	}
	cp := *p
	m.patients[p.ID] = &cp
	return true, nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.patients[id]; !ok {
		return false, nil
	}
	delete(m.patients, id)
	return true, nil
}

func (m *mockPatientRepo) List(_ context.Context) ([]*Patient, error) {
	var items []*Patient
	for i := m.nextID; i >= 1; i-- {
		if p, ok := m.patients[i]; ok {
			cp := *p
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockPatientRepo) SearchByName(ctx context.Context, term string) ([]*Patient, error) {
	all, _ := m.List(ctx)
	if term == "" {
		return all, nil
	}
	term = strings.ToLower(term)
	var items []*Patient
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.FirstName), term) ||
			strings.Contains(strings.ToLower(p.MiddleName), term) ||
			strings.Contains(strings.ToLower(p.LastName), term) {
			items = append(items, p)
		}
	}
	return items, nil
}

func (m *mockPatientRepo) ListDetails(ctx context.Context) ([]*Detail, error) {
	all, _ := m.List(ctx)
	var items []*Detail
	for _, p := range all {
		items = append(items, &Detail{Patient: *p})
	}
	return items, nil
}

// -- Mock lookup repositories --

type mockDiagnosisRepo struct {
	refs    map[int64]int // id -> referencing patient count
	deleted []int64
}

func (m *mockDiagnosisRepo) GetOrCreate(_ context.Context, name string) (int64, error) {
	return 0, errors.New("not used")
}

func (m *mockDiagnosisRepo) GetByID(_ context.Context, id int64) (*diagnosis.Diagnosis, error) {
	return nil, errs.ErrNotFound
}

func (m *mockDiagnosisRepo) List(_ context.Context) ([]diagnosis.Diagnosis, error) {
	return nil, nil
}

func (m *mockDiagnosisRepo) DeleteIfOrphaned(_ context.Context, id int64) (bool, error) {
	if m.refs[id] > 0 {
		return false, nil
	}
	m.deleted = append(m.deleted, id)
	return true, nil
}

type mockAddressRepo struct {
	refs    map[int64]int
	deleted []int64
}

func (m *mockAddressRepo) GetOrCreate(_ context.Context, a address.Address) (*int64, error) {
	return nil, errors.New("not used")
}

func (m *mockAddressRepo) GetByID(_ context.Context, id int64) (*address.Address, error) {
	return nil, errs.ErrNotFound
}

func (m *mockAddressRepo) List(_ context.Context) ([]address.Address, error) {
	return nil, nil
}

func (m *mockAddressRepo) DeleteIfOrphaned(_ context.Context, id int64) (bool, error) {
	if m.refs[id] > 0 {
		return false, nil
	}
	m.deleted = append(m.deleted, id)
	return true, nil
}

func newTestService() (*Service, *mockPatientRepo, *mockDiagnosisRepo, *mockAddressRepo) {
	repo := newMockPatientRepo()
	diags := &mockDiagnosisRepo{refs: make(map[int64]int)}
	addrs := &mockAddressRepo{refs: make(map[int64]int)}
	svc := NewService(passTxRunner{}, repo, diags, addrs, zerolog.Nop())
	return svc, repo, diags, addrs
}

func validPatient() *Patient {
	return &Patient{
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Sex:       "male",
		Birthdate: "1990-04-15",
	}
}

func TestAdd_RequiredFields(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Patient)
	}{
		{"first name", func(p *Patient) { p.FirstName = "" }},
		{"last name", func(p *Patient) { p.LastName = "  " }},
		{"sex", func(p *Patient) { p.Sex = "" }},
		{"birthdate", func(p *Patient) { p.Birthdate = "" }},
	}
	for _, tc := range cases {
		p := validPatient()
		tc.mutate(p)
		_, err := svc.Add(ctx, p)
		if !errs.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestAdd_RejectsMalformedBirthdate(t *testing.T) {
	svc, _, _, _ := newTestService()
	p := validPatient()
	p.Birthdate = "15/04/1990"
	if _, err := svc.Add(context.Background(), p); !errs.IsValidation(err) {
		t.Errorf("expected validation error for malformed birthdate, got %v", err)
	}
}

func TestAdd_DuplicateLeavesCountUnchanged(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, validPatient()); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	_, err := svc.Add(ctx, validPatient())
	if !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if len(repo.patients) != 1 {
		t.Errorf("expected patient count to stay 1, got %d", len(repo.patients))
	}
}

func TestAdd_SameNameDifferentBirthdateAllowed(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, validPatient()); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	p := validPatient()
	p.Birthdate = "1991-04-15"
	if _, err := svc.Add(ctx, p); err != nil {
		t.Errorf("expected add with different birthdate to succeed, got %v", err)
	}
}

func TestAdd_SetsTimestamps(t *testing.T) {
	svc, repo, _, _ := newTestService()
	id, err := svc.Add(context.Background(), validPatient())
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	stored := repo.patients[id]
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("expected Add to set created/updated timestamps")
	}
	if !stored.CreatedAt.Equal(stored.UpdatedAt) {
		t.Error("expected created and updated timestamps to match on add")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_DuplicateAgainstOtherPatient(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	id1, err := svc.Add(ctx, validPatient())
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	other := validPatient()
	other.FirstName = "Maria"
	id2, err := svc.Add(ctx, other)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	// Renaming Maria to collide with Juan must be rejected and change nothing.
	update := validPatient()
	err = svc.Update(ctx, id2, update)
	if !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if repo.patients[id2].FirstName != "Maria" {
		t.Error("expected colliding update to leave the record unchanged")
	}
	if repo.patients[id1].FirstName != "Juan" {
		t.Error("expected the other record to be untouched")
	}
}

func TestUpdate_SelfIsNotADuplicate(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Add(ctx, validPatient())
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	update := validPatient()
	update.Contact = "0917-555-0100"
	if err := svc.Update(ctx, id, update); err != nil {
		t.Fatalf("expected same-key update of self to apply, got %v", err)
	}
	if repo.patients[id].Contact != "0917-555-0100" {
		t.Error("expected contact to be updated")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	if err := svc.Update(context.Background(), 99, validPatient()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_PreservesCreatedAt(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Add(ctx, validPatient())
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	created := repo.patients[id].CreatedAt

	update := validPatient()
	update.Notes = "follow-up scheduled"
	if err := svc.Update(ctx, id, update); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !repo.patients[id].CreatedAt.Equal(created) {
		t.Error("expected Update to preserve the creation timestamp")
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	if err := svc.Delete(context.Background(), 7); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_CleansUpOrphanedLookups(t *testing.T) {
	svc, _, diags, addrs := newTestService()
	ctx := context.Background()

	diagID, addrID := int64(3), int64(5)
	p := validPatient()
	p.DiagnosisID = &diagID
	p.AddressID = &addrID
	id, err := svc.Add(ctx, p)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(diags.deleted) != 1 || diags.deleted[0] != diagID {
		t.Errorf("expected orphaned diagnosis %d to be deleted, got %v", diagID, diags.deleted)
	}
	if len(addrs.deleted) != 1 || addrs.deleted[0] != addrID {
		t.Errorf("expected orphaned address %d to be deleted, got %v", addrID, addrs.deleted)
	}
}

func TestDelete_KeepsReferencedLookups(t *testing.T) {
	svc, _, diags, _ := newTestService()
	ctx := context.Background()

	diagID := int64(3)
	diags.refs[diagID] = 1 // still referenced by another patient

	p := validPatient()
	p.DiagnosisID = &diagID
	id, err := svc.Add(ctx, p)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(diags.deleted) != 0 {
		t.Errorf("expected referenced diagnosis to survive, got deletions %v", diags.deleted)
	}
}

func TestSearch_BlankTermReturnsAll(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for _, first := range []string{"Ana", "Bruno", "Carla"} {
		p := validPatient()
		p.FirstName = first
		if _, err := svc.Add(ctx, p); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	all, err := svc.Search(ctx, "   ")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 results for blank term, got %d", len(all))
	}
}

func TestKey_TrimsWhitespace(t *testing.T) {
	a := &Patient{FirstName: " Juan ", MiddleName: "", LastName: "Dela Cruz", Birthdate: "1990-04-15"}
	b := &Patient{FirstName: "Juan", MiddleName: " ", LastName: " Dela Cruz", Birthdate: "1990-04-15 "}
	if a.Key() != b.Key() {
		t.Errorf("expected trimmed keys to match: %+v vs %+v", a.Key(), b.Key())
	}
}

func TestFullName_SkipsEmptyParts(t *testing.T) {
	p := &Patient{FirstName: "Juan", MiddleName: "", LastName: "Dela Cruz", NameExt: "Jr."}
	if got := p.FullName(); got != "Juan Dela Cruz Jr." {
		t.Errorf("FullName() = %q", got)
	}
}

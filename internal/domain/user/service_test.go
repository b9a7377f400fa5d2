package user

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/platform/auth"
)

type mockRepo struct {
	users map[uuid.UUID]*User
	codes map[uuid.UUID]*Code
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users: make(map[uuid.UUID]*User),
		codes: make(map[uuid.UUID]*Code),
	}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var all []*User
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockRepo) CreateCode(_ context.Context, c *Code) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.codes[c.ID] = c
	return nil
}

func (m *mockRepo) LatestCode(_ context.Context, userID uuid.UUID, purpose string) (*Code, error) {
	var latest *Code
	for _, c := range m.codes {
		if c.UserID != userID || c.Purpose != purpose || c.Consumed {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

func (m *mockRepo) ConsumeCode(_ context.Context, id uuid.UUID) error {
	c, ok := m.codes[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Consumed = true
	return nil
}

// latestFor lets tests read the code that would have arrived by mail.
func (m *mockRepo) latestFor(t *testing.T, userID uuid.UUID, purpose string) *Code {
	t.Helper()
	c, err := m.LatestCode(context.Background(), userID, purpose)
	if err != nil {
		t.Fatalf("no %s code issued for %s", purpose, userID)
	}
	return c
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type mockMail struct {
	sent []sentMail
}

func (m *mockMail) Send(_ context.Context, to, subject, body string) {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
}

func testJWT() auth.JWTConfig {
	return auth.JWTConfig{SigningKey: []byte("test-signing-key"), TokenTTL: time.Hour}
}

func newUserTestService() (*Service, *mockRepo, *mockMail, *audit.MemSink) {
	repo := newMockRepo()
	mail := &mockMail{}
	trail := &audit.MemSink{}
	svc := NewService(repo, mail, trail, testJWT())
	return svc, repo, mail, trail
}

func register(t *testing.T, svc *Service, email string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), email, "Ana Rojas", "contraseña-larga")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestService_Register(t *testing.T) {
	svc, repo, mail, _ := newUserTestService()

	u := register(t, svc, " Ana.Rojas@Hospital.cl ")
	if u.Email != "ana.rojas@hospital.cl" {
		t.Errorf("expected lowered trimmed email, got %q", u.Email)
	}
	if u.Role != auth.RoleClerk {
		t.Errorf("expected new accounts to start as %s, got %s", auth.RoleClerk, u.Role)
	}
	if u.Activated {
		t.Error("expected account to start unactivated")
	}
	if u.PasswordHash == "contraseña-larga" {
		t.Error("password stored in clear")
	}

	code := repo.latestFor(t, u.ID, PurposeActivation)
	if len(code.Code) != 6 {
		t.Errorf("expected 6-digit code, got %q", code.Code)
	}
	if len(mail.sent) != 1 || mail.sent[0].To != u.Email {
		t.Fatalf("expected one mail to the new account, got %+v", mail.sent)
	}
	if !strings.Contains(mail.sent[0].Body, code.Code) {
		t.Error("mailed body does not carry the issued code")
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc, _, _, _ := newUserTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "sin-arroba", "Ana", "contraseña-larga"); err == nil {
		t.Error("expected error for email without @")
	}
	if _, err := svc.Register(ctx, "a@b.cl", "", "contraseña-larga"); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := svc.Register(ctx, "a@b.cl", "Ana", "corta"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestService_Register_EmailTaken(t *testing.T) {
	svc, _, _, _ := newUserTestService()

	register(t, svc, "ana@hospital.cl")
	_, err := svc.Register(context.Background(), "ANA@hospital.cl", "Otra Ana", "contraseña-larga")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestService_ActivateAndLogin(t *testing.T) {
	svc, repo, _, trail := newUserTestService()
	ctx := context.Background()

	u := register(t, svc, "ana@hospital.cl")

	// Cannot log in before activation.
	err := svc.LoginStart(ctx, u.Email, "contraseña-larga")
	if !errors.Is(err, ErrNotActivated) {
		t.Fatalf("expected ErrNotActivated before activation, got %v", err)
	}

	code := repo.latestFor(t, u.ID, PurposeActivation)
	if err := svc.Activate(ctx, u.Email, code.Code); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !repo.users[u.ID].Activated {
		t.Fatal("expected account activated")
	}

	if err := svc.LoginStart(ctx, u.Email, "contraseña-larga"); err != nil {
		t.Fatalf("LoginStart: %v", err)
	}
	login := repo.latestFor(t, u.ID, PurposeLogin)

	token, got, err := svc.LoginComplete(ctx, "10.0.0.1", u.Email, login.Code)
	if err != nil {
		t.Fatalf("LoginComplete: %v", err)
	}
	if token == "" {
		t.Error("expected a signed token")
	}
	if got.ID != u.ID {
		t.Errorf("expected logged-in user %s, got %s", u.ID, got.ID)
	}

	if len(trail.Entries) == 0 {
		t.Fatal("expected a trail entry for the login")
	}
	last := trail.Entries[len(trail.Entries)-1]
	if last.Action != audit.ActionLogin || last.Entity != "app_user" || last.EntityID != u.ID.String() {
		t.Errorf("unexpected login trail entry: %+v", last)
	}
	if last.IP == nil || *last.IP != "10.0.0.1" {
		t.Errorf("expected login entry to carry the client IP, got %+v", last.IP)
	}

	// The login code is single use.
	if _, _, err := svc.LoginComplete(ctx, "10.0.0.1", u.Email, login.Code); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode on code reuse, got %v", err)
	}
}

func TestService_Activate_WrongCode(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	ctx := context.Background()

	u := register(t, svc, "ana@hospital.cl")
	if err := svc.Activate(ctx, u.Email, "000000"); !errors.Is(err, ErrInvalidCode) {
		// A 1-in-a-million collision would need the issued code to be 000000.
		if repo.latestFor(t, u.ID, PurposeActivation).Code != "000000" {
			t.Errorf("expected ErrInvalidCode, got %v", err)
		}
	}
	if repo.users[u.ID].Activated {
		t.Error("account activated by a wrong code")
	}
}

func TestService_Activate_ExpiredCode(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	ctx := context.Background()

	u := register(t, svc, "ana@hospital.cl")
	code := repo.latestFor(t, u.ID, PurposeActivation)
	code.ExpiresAt = time.Now().Add(-time.Minute)

	if err := svc.Activate(ctx, u.Email, code.Code); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode for expired code, got %v", err)
	}
}

func TestService_LoginStart_SameErrorForUnknownAndWrongPassword(t *testing.T) {
	svc, _, _, _ := newUserTestService()
	ctx := context.Background()

	register(t, svc, "ana@hospital.cl")

	unknown := svc.LoginStart(ctx, "nadie@hospital.cl", "contraseña-larga")
	wrong := svc.LoginStart(ctx, "ana@hospital.cl", "otra-contraseña")
	if !errors.Is(unknown, ErrInvalidCredentials) || !errors.Is(wrong, ErrInvalidCredentials) {
		t.Errorf("expected identical ErrInvalidCredentials, got %v and %v", unknown, wrong)
	}
}

func TestService_LoginStart_InactiveAccount(t *testing.T) {
	svc, repo, _, _ := newUserTestService()
	ctx := context.Background()

	u := register(t, svc, "ana@hospital.cl")
	repo.users[u.ID].Activated = true
	repo.users[u.ID].Active = false

	if err := svc.LoginStart(ctx, u.Email, "contraseña-larga"); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _, _, _ := newUserTestService()
	ctx := context.Background()
	actx := audit.Context{ActorName: "Ana Rojas"}

	u := register(t, svc, "ana@hospital.cl")

	err := svc.ChangePassword(ctx, actx, u.ID, "equivocada", "nueva-contraseña")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, actx, u.ID, "contraseña-larga", "nueva-contraseña"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if err := svc.VerifySignature(ctx, u.ID, "nueva-contraseña"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if err := svc.VerifySignature(ctx, u.ID, "contraseña-larga"); !errors.Is(err, auth.ErrInvalidSignature) {
		t.Errorf("old password still accepted: %v", err)
	}
}

func TestService_SetRole(t *testing.T) {
	svc, _, _, _ := newUserTestService()
	ctx := context.Background()
	actx := audit.Context{ActorName: "TI"}

	u := register(t, svc, "ana@hospital.cl")

	got, err := svc.SetRole(ctx, actx, u.ID, auth.RoleClinician)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if got.Role != auth.RoleClinician {
		t.Errorf("expected role %s, got %s", auth.RoleClinician, got.Role)
	}

	if _, err := svc.SetRole(ctx, actx, u.ID, "megadmin"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestService_VerifySignature_UnknownUser(t *testing.T) {
	svc, _, _, _ := newUserTestService()

	err := svc.VerifySignature(context.Background(), uuid.New(), "da-igual")
	if !errors.Is(err, auth.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/maternity/maternity/internal/domain/audit"
	"github.com/maternity/maternity/internal/platform/auth"
)

var (
	ErrEmailTaken         = errors.New("el correo ya está registrado")
	ErrInvalidCredentials = errors.New("correo o contraseña incorrectos")
	ErrNotActivated       = errors.New("la cuenta no ha sido activada")
	ErrAccountInactive    = errors.New("la cuenta está desactivada")
	ErrInvalidCode        = errors.New("código inválido o expirado")
	ErrInvalidRole        = errors.New("rol desconocido")
)

const codeTTL = 15 * time.Minute

type Service struct {
	repo  Repository
	mail  MailSender
	trail audit.Sink
	jwt   auth.JWTConfig
}

func NewService(repo Repository, mail MailSender, trail audit.Sink, jwt auth.JWTConfig) *Service {
	return &Service{repo: repo, mail: mail, trail: trail, jwt: jwt}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Register creates an account with the lowest role and mails a 6-digit
// activation code. The account cannot log in until it is activated.
func (s *Service) Register(ctx context.Context, email, fullName, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if fullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         auth.RoleClerk,
		Activated:    false,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.issueCode(ctx, u, PurposeActivation,
		"Activación de cuenta", "Tu código de activación es: %s"); err != nil {
		return nil, err
	}
	return u, nil
}

// Activate consumes a valid activation code and unlocks the account.
func (s *Service) Activate(ctx context.Context, email, code string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if u.Activated {
		return nil
	}

	if err := s.consumeCode(ctx, u.ID, PurposeActivation, code); err != nil {
		return err
	}

	u.Activated = true
	return s.repo.Update(ctx, u)
}

// LoginStart verifies the password and mails a single-use login code. The
// same error is returned for an unknown email and a wrong password.
func (s *Service) LoginStart(ctx context.Context, email, password string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	if !u.Activated {
		return ErrNotActivated
	}
	if !u.Active {
		return ErrAccountInactive
	}

	return s.issueCode(ctx, u, PurposeLogin,
		"Código de ingreso", "Tu código de ingreso es: %s")
}

// LoginComplete consumes the login code and issues a JWT. A login audit
// entry is recorded with the caller's address.
func (s *Service) LoginComplete(ctx context.Context, ip, email, code string) (string, *User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrInvalidCode
	}
	if err != nil {
		return "", nil, err
	}

	if err := s.consumeCode(ctx, u.ID, PurposeLogin, code); err != nil {
		return "", nil, err
	}

	token, err := auth.IssueToken(s.jwt, u.ID.String(), u.FullName, u.Role, u.IsSuperuser)
	if err != nil {
		return "", nil, err
	}

	actx := audit.Context{ActorID: &u.ID, ActorName: u.FullName, IP: ip}
	s.trail.Record(ctx, actx, audit.ActionLogin, "app_user", u.ID.String(), "")
	return token, u, nil
}

// Logout only records the audit entry; tokens are stateless.
func (s *Service) Logout(ctx context.Context, actx audit.Context) {
	id := ""
	if actx.ActorID != nil {
		id = actx.ActorID.String()
	}
	s.trail.Record(ctx, actx, audit.ActionLogout, "app_user", id, "")
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateProfile lets a user change their own display name.
func (s *Service) UpdateProfile(ctx context.Context, actx audit.Context, id uuid.UUID, fullName string) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FullName = fullName
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "app_user", u.ID.String(), "perfil")
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, actx audit.Context, id uuid.UUID, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "app_user", u.ID.String(), "cambio de contraseña")
	return nil
}

// SetRole assigns a role; IT-gated at the handler.
func (s *Service) SetRole(ctx context.Context, actx audit.Context, id uuid.UUID, role string) (*User, error) {
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.trail.Record(ctx, actx, audit.ActionUpdate, "app_user", u.ID.String(),
		fmt.Sprintf("rol asignado: %s", role))
	return u, nil
}

// SetActive enables or disables an account; IT-gated at the handler.
func (s *Service) SetActive(ctx context.Context, actx audit.Context, id uuid.UUID, active bool) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Active == active {
		return u, nil
	}
	u.Active = active
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	action := audit.ActionDelete
	if active {
		action = audit.ActionUpdate
	}
	s.trail.Record(ctx, actx, action, "app_user", u.ID.String(), fmt.Sprintf("active=%t", active))
	return u, nil
}

// VerifySignature is the simple-signature check behind signed clinical
// operations: the caller re-enters their password.
func (s *Service) VerifySignature(ctx context.Context, userID uuid.UUID, password string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return auth.ErrInvalidSignature
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return auth.ErrInvalidSignature
	}
	return nil
}

func (s *Service) issueCode(ctx context.Context, u *User, purpose, subject, bodyFmt string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	c := &Code{
		UserID:    u.ID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: time.Now().Add(codeTTL),
	}
	if err := s.repo.CreateCode(ctx, c); err != nil {
		return err
	}
	s.mail.Send(ctx, u.Email, subject, fmt.Sprintf(bodyFmt, code))
	return nil
}

func (s *Service) consumeCode(ctx context.Context, userID uuid.UUID, purpose, code string) error {
	c, err := s.repo.LatestCode(ctx, userID, purpose)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if c.Expired(time.Now()) || c.Code != code {
		return ErrInvalidCode
	}
	return s.repo.ConsumeCode(ctx, c.ID)
}

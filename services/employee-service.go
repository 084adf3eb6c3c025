package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"crm-project/backend/auth"
	"crm-project/backend/logging"
	"crm-project/backend/models"
	"crm-project/backend/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidCredentials = auth.ErrPasswordMismatch

type EmployeeInput struct {
	Name     string           `json:"name"`
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Role     permissions.Role `json:"role"`
	Password string           `json:"password,omitempty"`
}

// Session is what a signed-in client holds: the token, the profile and the
// actions its role grants.
type Session struct {
	Token    string               `json:"token,omitempty"`
	Employee models.Employee      `json:"employee"`
	Actions  []permissions.Action `json:"actions"`
}

type EmployeeService struct {
	employees EmployeeStore
	avatars   AvatarStorage
	tokens    *auth.TokenManager
	now       func() time.Time
}

func NewEmployeeService(employees EmployeeStore, avatars AvatarStorage, tokens *auth.TokenManager) *EmployeeService {
	return &EmployeeService{employees: employees, avatars: avatars, tokens: tokens, now: time.Now}
}

func (s *EmployeeService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	return s.employees.List(ctx)
}

func (s *EmployeeService) CreateEmployee(ctx context.Context, in EmployeeInput) (models.Employee, error) {
	if err := normalizeEmployee(&in); err != nil {
		return models.Employee{}, err
	}
	if in.Password == "" {
		return models.Employee{}, ErrPasswordRequired
	}
	if err := s.checkUnique(ctx, primitive.NilObjectID, in); err != nil {
		return models.Employee{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Employee{}, err
	}
	e := models.Employee{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.employees.Insert(ctx, &e); err != nil {
		return models.Employee{}, err
	}
	logging.Logger.Infof("Event ID: EMPLOYEE_CREATED, Description: Employee %s created with role %s", e.Username, e.Role)
	return e, nil
}

// UpdateEmployee edits the profile. The password is not changed here.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, id primitive.ObjectID, in EmployeeInput) (models.Employee, error) {
	if err := normalizeEmployee(&in); err != nil {
		return models.Employee{}, err
	}
	e, err := s.employees.Get(ctx, id)
	if err != nil {
		return models.Employee{}, err
	}
	if err := s.checkUnique(ctx, id, in); err != nil {
		return models.Employee{}, err
	}
	e.Name, e.Username, e.Email, e.Role = in.Name, in.Username, in.Email, in.Role
	if err := s.employees.Update(ctx, e); err != nil {
		return models.Employee{}, err
	}
	return e, nil
}

func (s *EmployeeService) DeleteEmployee(ctx context.Context, id primitive.ObjectID) error {
	if err := s.employees.Delete(ctx, id); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: EMPLOYEE_DELETED, Description: Employee %s deleted", id.Hex())
	return nil
}

func normalizeEmployee(in *EmployeeInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case in.Username == "" || strings.Contains(in.Username, "@"):
		return fmt.Errorf("%w: username is required and may not contain @", ErrValidation)
	case !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	case !in.Role.Valid():
		return fmt.Errorf("%w: invalid role", ErrValidation)
	}
	return nil
}

func (s *EmployeeService) checkUnique(ctx context.Context, self primitive.ObjectID, in EmployeeInput) error {
	if e, err := s.employees.FindByUsername(ctx, in.Username); err == nil && e.ID != self {
		return fmt.Errorf("username %q %w", in.Username, ErrDuplicate)
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if e, err := s.employees.FindByEmail(ctx, in.Email); err == nil && e.ID != self {
		return fmt.Errorf("email %q %w", in.Email, ErrDuplicate)
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return nil
}

// ResolveLoginEmail maps a sign-in identifier to an email. Anything with an
// @ is taken as an email; otherwise it is looked up as a username.
func (s *EmployeeService) ResolveLoginEmail(ctx context.Context, identifier string) (string, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return "", ErrInvalidCredentials
	}
	if strings.Contains(identifier, "@") {
		return identifier, nil
	}
	e, err := s.employees.FindByUsername(ctx, identifier)
	if errors.Is(err, models.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	return e.Email, nil
}

func (s *EmployeeService) Login(ctx context.Context, identifier, password string) (Session, error) {
	email, err := s.ResolveLoginEmail(ctx, identifier)
	if err != nil {
		return Session{}, err
	}
	e, err := s.employees.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Unknown account %s", email)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(e.PasswordHash, password); err != nil {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Wrong password for %s", e.Username)
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(e.ID.Hex(), e.Username, e.Email, e.Role)
	if err != nil {
		return Session{}, err
	}
	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: Employee %s signed in", e.Username)
	return Session{Token: token, Employee: e, Actions: permissions.Actions(e.Role)}, nil
}

// Session reloads the profile behind valid claims so role changes apply
// without signing in again.
func (s *EmployeeService) Session(ctx context.Context, claims *auth.Claims) (Session, error) {
	id, err := primitive.ObjectIDFromHex(claims.EmployeeID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	e, err := s.employees.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return Session{Employee: e, Actions: permissions.Actions(e.Role)}, nil
}

func (s *EmployeeService) Logout(claims *auth.Claims) {
	s.tokens.Revoke(claims)
	logging.Logger.Infof("Event ID: LOGOUT, Description: Employee %s signed out", claims.Username)
}

// UpdateAvatar stores the image and saves a cache-busted URL on the profile.
func (s *EmployeeService) UpdateAvatar(ctx context.Context, id primitive.ObjectID, contentType string, r io.Reader) (models.Employee, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return models.Employee{}, fmt.Errorf("%w: avatar must be an image, got %q", ErrValidation, contentType)
	}
	e, err := s.employees.Get(ctx, id)
	if err != nil {
		return models.Employee{}, err
	}
	url, err := s.avatars.Upload(ctx, id.Hex(), contentType, r)
	if err != nil {
		return models.Employee{}, err
	}
	e.AvatarURL = fmt.Sprintf("%s?t=%d", url, s.now().UnixMilli())
	if err := s.employees.Update(ctx, e); err != nil {
		return models.Employee{}, err
	}
	return e, nil
}

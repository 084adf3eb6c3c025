package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crm-project/backend/auth"
	"crm-project/backend/memstore"
	"crm-project/backend/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newEmployeeService() (*EmployeeService, *memstore.Employees, *fakeAvatars, *auth.TokenManager) {
	store, avatars := &memstore.Employees{}, &fakeAvatars{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewEmployeeService(store, avatars, tokens)
	svc.now = fixedNow(may10)
	return svc, store, avatars, tokens
}

func TestCreateEmployee(t *testing.T) {
	svc, store, _, _ := newEmployeeService()
	ctx := context.Background()

	in := EmployeeInput{Name: "Sara", Username: " Sara ", Email: "SARA@example.com", Role: permissions.Supervisor}
	if _, err := svc.CreateEmployee(ctx, in); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("no password: error = %v, want ErrPasswordRequired", err)
	}

	in.Password = "pa55word"
	e, err := svc.CreateEmployee(ctx, in)
	if err != nil {
		t.Fatalf("CreateEmployee() error = %v", err)
	}
	if e.Username != "sara" || e.Email != "sara@example.com" {
		t.Errorf("identifiers not normalized: %+v", e)
	}
	if e.PasswordHash == "" || e.PasswordHash == in.Password {
		t.Error("password not hashed")
	}
	if len(store.Items) != 1 {
		t.Fatalf("stored %d employees", len(store.Items))
	}

	dup := EmployeeInput{Name: "Other", Username: "sara", Email: "other@example.com", Password: "x"}
	if _, err := svc.CreateEmployee(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username: error = %v, want ErrDuplicate", err)
	}
	dup = EmployeeInput{Name: "Other", Username: "other", Email: "sara@example.com", Password: "x"}
	if _, err := svc.CreateEmployee(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email: error = %v, want ErrDuplicate", err)
	}
	bad := EmployeeInput{Name: "X", Username: "a@b", Email: "x@example.com", Password: "x"}
	if _, err := svc.CreateEmployee(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Errorf("username with @: error = %v, want ErrValidation", err)
	}
}

func TestUpdateEmployeeKeepsOwnIdentifiers(t *testing.T) {
	svc, _, _, _ := newEmployeeService()
	ctx := context.Background()
	e, err := svc.CreateEmployee(ctx, EmployeeInput{Name: "A", Username: "a", Email: "a@x.com", Password: "p"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.UpdateEmployee(ctx, e.ID, EmployeeInput{Name: "A B", Username: "a", Email: "a@x.com", Role: permissions.Admin})
	if err != nil {
		t.Fatalf("UpdateEmployee() error = %v", err)
	}
	if got.Name != "A B" || got.Role != permissions.Admin {
		t.Errorf("UpdateEmployee() = %+v", got)
	}
}

func TestLoginSessionLogout(t *testing.T) {
	svc, _, _, tokens := newEmployeeService()
	ctx := context.Background()
	created, err := svc.CreateEmployee(ctx, EmployeeInput{Name: "Mona", Username: "mona", Email: "mona@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    bool
	}{
		{"by username", "mona", "s3cret", false},
		{"by email any case", "Mona@Example.com", "s3cret", false},
		{"wrong password", "mona", "nope", true},
		{"unknown user", "ghost", "s3cret", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.Login(ctx, tt.identifier, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil || s.Token == "" {
				t.Fatalf("Login() = %+v, %v", s, err)
			}
			if len(s.Actions) != 1 || s.Actions[0] != permissions.CreateTasks {
				t.Errorf("member actions = %v", s.Actions)
			}
		})
	}

	s, _ := svc.Login(ctx, "mona", "s3cret")
	claims, err := tokens.Validate(s.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	session, err := svc.Session(ctx, claims)
	if err != nil || session.Employee.ID != created.ID {
		t.Errorf("Session() = %+v, %v", session, err)
	}

	svc.Logout(claims)
	if _, err := tokens.Validate(s.Token); !errors.Is(err, auth.ErrRevokedToken) {
		t.Errorf("after logout: error = %v, want ErrRevokedToken", err)
	}
}

func TestUpdateAvatar(t *testing.T) {
	svc, _, avatars, _ := newEmployeeService()
	ctx := context.Background()
	e, _ := svc.CreateEmployee(ctx, EmployeeInput{Name: "A", Username: "a", Email: "a@x.com", Password: "p"})

	if _, err := svc.UpdateAvatar(ctx, e.ID, "text/plain", strings.NewReader("x")); !errors.Is(err, ErrValidation) {
		t.Errorf("non-image: error = %v, want ErrValidation", err)
	}
	got, err := svc.UpdateAvatar(ctx, e.ID, "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	want := "http://files.test/avatars/" + e.ID.Hex() + "?t=1715335200000"
	if got.AvatarURL != want {
		t.Errorf("AvatarURL = %q, want %q", got.AvatarURL, want)
	}
	if string(avatars.uploads[e.ID.Hex()]) != "png-bytes" {
		t.Error("upload not stored under the employee id")
	}
	if _, err := svc.UpdateAvatar(ctx, primitive.NewObjectID(), "image/png", strings.NewReader("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown employee: error = %v, want ErrNotFound", err)
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-project/backend/memstore"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type profileFixture struct {
	svc      *ProfileService
	profiles *memstore.Profiles
	assocs   *memstore.Associations
	charity  models.Association
	clock    time.Time
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	f := &profileFixture{
		profiles: &memstore.Profiles{},
		assocs:   &memstore.Associations{},
		charity:  models.Association{ID: primitive.NewObjectID(), Name: "جمعية البر", City: "الرياض", Status: models.AssocContacted},
		clock:    may10,
	}
	f.assocs.Items = []models.Association{f.charity}
	f.svc = NewProfileService(f.profiles, f.assocs)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

// session issues and opens a link, returning the cookie value.
func (f *profileFixture) session(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	link, err := f.svc.IssueLink(ctx, f.charity.ID)
	if err != nil {
		t.Fatalf("IssueLink() error = %v", err)
	}
	sess, err := f.svc.OpenLink(ctx, link.Token)
	if err != nil {
		t.Fatalf("OpenLink() error = %v", err)
	}
	return sess.Token
}

func (f *profileFixture) act(sessionID string, action models.ProfileAction, ip string) (bool, error) {
	return f.svc.Act(context.Background(), ProfileActionRequest{SessionID: sessionID, Action: action, IP: ip, UserAgent: "test"})
}

func TestProfileLinkIsSingleUse(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	if _, err := f.svc.IssueLink(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("IssueLink(unknown) error = %v, want ErrNotFound", err)
	}

	link, err := f.svc.IssueLink(ctx, f.charity.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, stored := f.profiles.Links[link.Token]; stored || len(f.profiles.Links) != 1 {
		t.Error("link token stored in clear")
	}
	if !link.ExpiresAt.Equal(may10.Add(ProfileLinkTTL)) {
		t.Errorf("ExpiresAt = %v", link.ExpiresAt)
	}

	sess, err := f.svc.OpenLink(ctx, link.Token)
	if err != nil || sess.Token == "" || sess.Token == link.Token {
		t.Fatalf("OpenLink() = %+v, %v", sess, err)
	}
	if _, err := f.svc.OpenLink(ctx, link.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("second OpenLink() error = %v, want ErrNotFound", err)
	}

	view, err := f.svc.Profile(ctx, sess.Token)
	if err != nil || view.Name != f.charity.Name || view.Stage != "" {
		t.Errorf("Profile() = %+v, %v", view, err)
	}

	stale, _ := f.svc.IssueLink(ctx, f.charity.ID)
	f.clock = may10.Add(ProfileLinkTTL)
	if _, err := f.svc.OpenLink(ctx, stale.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired OpenLink() error = %v, want ErrNotFound", err)
	}
}

func TestProfileActOncePerDay(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	sess := f.session(t)

	if ok, err := f.act(sess, models.ProfileInterested, "1.2.3.4"); !ok || err != nil {
		t.Fatalf("first Act() = %v, %v", ok, err)
	}
	stored, _ := f.assocs.Get(ctx, f.charity.ID)
	if stored.Stage != models.ProfileInterested || !stored.UpdatedAt.Equal(may10) {
		t.Errorf("stage = %q, updated %v", stored.Stage, stored.UpdatedAt)
	}
	if stored.Status != models.AssocContacted {
		t.Errorf("Act() changed the triage status to %q", stored.Status)
	}

	if ok, err := f.act(sess, models.ProfileInterested, "1.2.3.4"); ok || err != nil {
		t.Errorf("repeated Act() = %v, %v, want a silent no-op", ok, err)
	}
	if ok, _ := f.act(sess, models.ProfileNotNow, "1.2.3.4"); !ok {
		t.Error("a different action on the same day should be recorded")
	}
	f.clock = may10.Add(24 * time.Hour)
	if ok, _ := f.act(sess, models.ProfileInterested, "1.2.3.4"); !ok {
		t.Error("the same action on the next day should be recorded")
	}

	events, err := f.svc.Events(ctx, f.charity.ID)
	if err != nil || len(events) != 3 {
		t.Fatalf("Events() = %d, %v, want 3", len(events), err)
	}
	if events[0].Action != models.ProfileInterested || events[1].Action != models.ProfileNotNow {
		t.Errorf("events not newest first: %+v", events)
	}
	if events[0].Source != "profile_page" || events[0].IP != "1.2.3.4" || events[0].UserAgent != "test" {
		t.Errorf("event = %+v", events[0])
	}
	if f.profiles.Sessions[hashSecret(sess)].LastSeenAt != f.clock {
		t.Error("recording an action did not touch the session")
	}
}

func TestIdempotencyKeyUsesUTCDay(t *testing.T) {
	id := primitive.NewObjectID()
	riyadh := time.FixedZone("AST", 3*60*60)
	lateUTC := time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC)

	if IdempotencyKey(id, models.ProfileNotNow, lateUTC) != IdempotencyKey(id, models.ProfileNotNow, lateUTC.In(riyadh)) {
		t.Error("key depends on the caller's zone")
	}
	if IdempotencyKey(id, models.ProfileNotNow, lateUTC) == IdempotencyKey(id, models.ProfileNotNow, lateUTC.Add(time.Hour)) {
		t.Error("key did not change across the UTC day boundary")
	}
	if IdempotencyKey(id, models.ProfileNotNow, lateUTC) == IdempotencyKey(id, models.ProfileInterested, lateUTC) {
		t.Error("key does not depend on the action")
	}
}

func TestProfileActRateLimit(t *testing.T) {
	f := newProfileFixture(t)
	sess := f.session(t)
	actions := []models.ProfileAction{models.ProfileInterested, models.ProfileRequestCall, models.ProfileNotNow}

	for i := 0; i < ProfileRateLimit; i++ {
		if _, err := f.act(sess, actions[i%3], "1.2.3.4"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if _, err := f.act(sess, models.ProfileInterested, "1.2.3.4"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("request %d error = %v, want ErrRateLimited", ProfileRateLimit+1, err)
	}
	if _, err := f.act(sess, models.ProfileInterested, "5.6.7.8"); err != nil {
		t.Errorf("other IP error = %v", err)
	}

	f.clock = f.clock.Add(ProfileRateWindow)
	if _, err := f.act(sess, models.ProfileInterested, "1.2.3.4"); err != nil {
		t.Errorf("next window error = %v", err)
	}
}

func TestProfileActRejects(t *testing.T) {
	f := newProfileFixture(t)
	sess := f.session(t)

	if _, err := f.act(sess, "donate", "1.2.3.4"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown action error = %v, want ErrValidation", err)
	}
	if _, err := f.act("", models.ProfileInterested, "1.2.3.4"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("no session error = %v, want ErrSessionExpired", err)
	}
	if _, err := f.act("forged", models.ProfileInterested, "1.2.3.4"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("unknown session error = %v, want ErrSessionExpired", err)
	}

	f.clock = may10.Add(ProfileSessionTTL)
	if _, err := f.act(sess, models.ProfileInterested, "1.2.3.4"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expired session error = %v, want ErrSessionExpired", err)
	}
	if len(f.profiles.Events) != 0 {
		t.Errorf("rejected actions stored %d events", len(f.profiles.Events))
	}
}

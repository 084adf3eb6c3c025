package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"crm-project/backend/logging"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProfileLinkTTL    = 14 * 24 * time.Hour
	ProfileSessionTTL = 7 * 24 * time.Hour
	ProfileRateWindow = 10 * time.Minute
	ProfileRateLimit  = 10

	profileSource = "profile_page"
)

// ProfileGrant is a secret handed out once: a link token to send to a
// charity, or the session id put in its cookie.
type ProfileGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProfileView is what a charity sees about itself.
type ProfileView struct {
	Name  string               `json:"name"`
	City  string               `json:"city"`
	Stage models.ProfileAction `json:"stage,omitempty"`
}

type ProfileActionRequest struct {
	SessionID string
	Action    models.ProfileAction
	IP        string
	UserAgent string
}

// ProfileService runs the charity self-service flow: staff issue a link,
// the charity opens it to get a session and records a reply, which becomes
// the association's stage.
type ProfileService struct {
	profiles     ProfileStore
	associations AssociationStore
	now          func() time.Time
	random       io.Reader
}

func NewProfileService(profiles ProfileStore, associations AssociationStore) *ProfileService {
	return &ProfileService{profiles: profiles, associations: associations, now: time.Now, random: rand.Reader}
}

func hashSecret(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (s *ProfileService) newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *ProfileService) IssueLink(ctx context.Context, associationID primitive.ObjectID) (ProfileGrant, error) {
	if _, err := s.associations.Get(ctx, associationID); err != nil {
		return ProfileGrant{}, err
	}
	token, err := s.newSecret()
	if err != nil {
		return ProfileGrant{}, err
	}
	now := s.now()
	link := models.ProfileLink{
		TokenHash:     hashSecret(token),
		AssociationID: associationID,
		ExpiresAt:     now.Add(ProfileLinkTTL),
		CreatedAt:     now,
	}
	if err := s.profiles.CreateLink(ctx, link); err != nil {
		return ProfileGrant{}, err
	}
	logging.Logger.Infof("Event ID: PROFILE_LINK_ISSUED, Description: Profile link issued for association %s", associationID.Hex())
	return ProfileGrant{Token: token, ExpiresAt: link.ExpiresAt}, nil
}

// OpenLink spends a link token and starts a session for its association.
// Unknown, used and expired tokens are ErrNotFound.
func (s *ProfileService) OpenLink(ctx context.Context, token string) (ProfileGrant, error) {
	now := s.now()
	link, err := s.profiles.UseLink(ctx, hashSecret(token), now)
	if err != nil {
		return ProfileGrant{}, err
	}
	id, err := s.newSecret()
	if err != nil {
		return ProfileGrant{}, err
	}
	session := models.ProfileSession{
		IDHash:        hashSecret(id),
		AssociationID: link.AssociationID,
		ExpiresAt:     now.Add(ProfileSessionTTL),
		LastSeenAt:    now,
	}
	if err := s.profiles.CreateSession(ctx, session); err != nil {
		return ProfileGrant{}, err
	}
	logging.Logger.Infof("Event ID: PROFILE_LINK_OPENED, Description: Profile session opened for association %s", link.AssociationID.Hex())
	return ProfileGrant{Token: id, ExpiresAt: session.ExpiresAt}, nil
}

func (s *ProfileService) session(ctx context.Context, sessionID string) (models.ProfileSession, error) {
	if sessionID == "" {
		return models.ProfileSession{}, ErrSessionExpired
	}
	sess, err := s.profiles.FindSession(ctx, hashSecret(sessionID), s.now())
	if errors.Is(err, models.ErrNotFound) {
		return sess, ErrSessionExpired
	}
	return sess, err
}

func (s *ProfileService) Profile(ctx context.Context, sessionID string) (ProfileView, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return ProfileView{}, err
	}
	a, err := s.associations.Get(ctx, sess.AssociationID)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{Name: a.Name, City: a.City, Stage: a.Stage}, nil
}

// IdempotencyKey identifies one action by one association on one UTC day.
func IdempotencyKey(associationID primitive.ObjectID, action models.ProfileAction, at time.Time) string {
	day := at.UTC().Format(models.DateLayout)
	return hashSecret(fmt.Sprintf("charity:%s:action:%s:day:%s", associationID.Hex(), action, day))
}

// Act records a charity's reply. Repeating the same action on the same UTC
// day is a no-op and reports false. Each session and IP may send at most
// ProfileRateLimit requests per ProfileRateWindow.
func (s *ProfileService) Act(ctx context.Context, req ProfileActionRequest) (bool, error) {
	if !req.Action.Valid() {
		return false, fmt.Errorf("%w: unknown action %q", ErrValidation, req.Action)
	}
	sess, err := s.session(ctx, req.SessionID)
	if err != nil {
		return false, err
	}

	now := s.now()
	window := now.Truncate(ProfileRateWindow)
	rateKey := hashSecret(req.IP+":"+sess.IDHash) + ":" + window.UTC().Format(time.RFC3339)
	hits, err := s.profiles.Hit(ctx, rateKey, window.Add(ProfileRateWindow))
	if err != nil {
		return false, err
	}
	if hits > ProfileRateLimit {
		logging.Logger.Warnf("Event ID: PROFILE_RATE_LIMITED, Description: Association %s exceeded %d actions per %s", sess.AssociationID.Hex(), ProfileRateLimit, ProfileRateWindow)
		return false, ErrRateLimited
	}

	key := IdempotencyKey(sess.AssociationID, req.Action, now)
	if seen, err := s.profiles.HasEvent(ctx, key); err != nil || seen {
		return false, err
	}

	a, err := s.associations.Get(ctx, sess.AssociationID)
	if err != nil {
		return false, err
	}
	if a.Stage != req.Action {
		a.Stage = req.Action
		a.UpdatedAt = now
		if err := s.associations.Update(ctx, a); err != nil {
			return false, err
		}
	}

	inserted, err := s.profiles.InsertEvent(ctx, &models.AssociationEvent{
		AssociationID:  sess.AssociationID,
		Action:         req.Action,
		Stage:          req.Action,
		Source:         profileSource,
		IdempotencyKey: key,
		IP:             req.IP,
		UserAgent:      req.UserAgent,
		CreatedAt:      now,
	})
	if err != nil || !inserted {
		return false, err
	}
	if err := s.profiles.TouchSession(ctx, sess.IDHash, now); err != nil {
		logging.Logger.Warnf("Event ID: PROFILE_SESSION_TOUCH_FAILED, Description: %v", err)
	}
	logging.Logger.Infof("Event ID: PROFILE_ACTION_RECORDED, Description: Association %s replied %s", sess.AssociationID.Hex(), req.Action)
	return true, nil
}

// Events lists an association's recorded replies, newest first.
func (s *ProfileService) Events(ctx context.Context, associationID primitive.ObjectID) ([]models.AssociationEvent, error) {
	if _, err := s.associations.Get(ctx, associationID); err != nil {
		return nil, err
	}
	return s.profiles.ListEvents(ctx, associationID)
}

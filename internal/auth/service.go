package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/pkg"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL        = 24 * 7 * time.Hour
	MinPasswordLength = 8

	sessionKeyPrefix = "dailyfit-session||"
	tokensSetKey     = "dailyfit-sessions"
	tokenIDLength    = 35
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = fmt.Errorf("password must have at least %d characters", MinPasswordLength)
	ErrWrongCredentials = errors.New("wrong email or password")
	ErrSessionRevoked   = errors.New("session revoked")
	ErrSessionExpired   = errors.New("session expired")
)

type Session struct {
	Token     string
	UserID    uuid.UUID
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type StateChange struct {
	UserID        uuid.UUID
	Email         string
	Authenticated bool
}

type usersRepo interface {
	Create(ctx context.Context, user User) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
}

type Service struct {
	users       usersRepo
	tokens      *TokenIssuer
	redisClient *redis.Client
	ttl         time.Duration

	subsMutex   sync.Mutex
	subscribers map[int]chan StateChange
	nextSubID   int

	// ability to inject random string generator func for token ids (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	Now            func() time.Time
	HashFunc       func(password string) (string, error)
}

func NewService(
	users usersRepo,
	tokens *TokenIssuer,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		users:          users,
		tokens:         tokens,
		redisClient:    redisClient,
		ttl:            ttl,
		subscribers:    make(map[int]chan StateChange),
		RandStringFunc: pkg.GenerateRandomString,
		Now:            time.Now,
		HashFunc:       pkg.HashPassword,
	}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (User, error) {
	email = pkg.NormalizeEmail(email)
	if !validEmail(email) {
		return User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := s.HashFunc(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.Now().UTC(),
	})
	if err != nil {
		return User{}, err
	}

	log.Debugf("auth service: user %s signed up", user.ID)
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.ByEmail(ctx, pkg.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Session{}, ErrWrongCredentials
		}
		return Session{}, err
	}
	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return Session{}, ErrWrongCredentials
	}

	tokenID, err := s.RandStringFunc(tokenIDLength)
	if err != nil {
		return Session{}, err
	}

	createdAt := s.Now()
	token, err := s.tokens.Issue(user.ID, user.Email, tokenID, createdAt)
	if err != nil {
		return Session{}, err
	}

	sessionKey := sessionKeyPrefix + tokenID
	cmdSet := s.redisClient.Set(ctx, sessionKey, createdAt.Unix(), 0)
	if err := cmdSet.Err(); err != nil {
		return Session{}, err
	}

	// add token id to the set of sessions
	cmdSAdd := s.redisClient.SAdd(ctx, tokensSetKey, tokenID)
	if err := cmdSAdd.Err(); err != nil {
		return Session{}, err
	}

	s.publish(StateChange{UserID: user.ID, Email: user.Email, Authenticated: true})

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(s.ttl),
	}, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}

	sessionKey := sessionKeyPrefix + claims.ID
	cmdDel := s.redisClient.Del(ctx, sessionKey)
	if err := cmdDel.Err(); err != nil {
		return err
	}

	// remove token id from the set of sessions
	cmdSRem := s.redisClient.SRem(ctx, tokensSetKey, claims.ID)
	if err := cmdSRem.Err(); err != nil {
		return err
	}

	if cmdDel.Val() == 0 {
		return ErrSessionRevoked
	}

	s.publish(StateChange{UserID: claims.UserID, Email: claims.Email, Authenticated: false})
	return nil
}

// Authenticate verifies the token signature and checks that its session
// is still present in redis and younger than the service TTL.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	sessionKey := sessionKeyPrefix + claims.ID
	cmd := s.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}

	createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
	if err != nil {
		return nil, err
	}

	createdAt := time.Unix(createdAtUnix, 0)
	if s.Now().Sub(createdAt) > s.ttl {
		return nil, ErrSessionExpired
	}

	return claims, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (s *Service) ScanAndClean(ctx context.Context) {
	cmd := s.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	tokenIDs := cmd.Val()
	if len(tokenIDs) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Infof("=> auth service, scan and clean [%d sessions] start ...", len(tokenIDs))
	var toRemove []string
	for _, tokenID := range tokenIDs {
		sessionKey := sessionKeyPrefix + tokenID
		cmd := s.redisClient.Get(ctx, sessionKey)
		if err := cmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				// dangling set member, its session key is already gone
				toRemove = append(toRemove, tokenID)
				continue
			}
			log.Errorf("=> auth service, scan and clean token %s: %s", tokenID, err)
			continue
		}

		createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", tokenID, err)
			continue
		}

		createdAt := time.Unix(createdAtUnix, 0)
		if s.Now().Sub(createdAt) > s.ttl {
			log.Debugf("=>\twill clean the session with token id: %s", tokenID)
			toRemove = append(toRemove, tokenID)
		}
	}

	for _, tokenID := range toRemove {
		sessionKey := sessionKeyPrefix + tokenID
		if err := s.redisClient.Del(ctx, sessionKey).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", tokenID, err)
			continue
		}
		if err := s.redisClient.SRem(ctx, tokensSetKey, tokenID).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", tokenID, err)
			continue
		}
	}
}

// Subscribe returns a channel of sign in and sign out notifications.
// Sends are non-blocking, a full channel misses the change.
func (s *Service) Subscribe(buffer int) (<-chan StateChange, func()) {
	ch := make(chan StateChange, buffer)

	s.subsMutex.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subsMutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMutex.Lock()
			delete(s.subscribers, id)
			s.subsMutex.Unlock()
			close(ch)
		})
	}
}

func (s *Service) publish(change StateChange) {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- change:
		default:
			log.Warnf("auth service: subscriber too slow, dropping state change for user %s", change.UserID)
		}
	}
}

// validEmail accepts a bare address (no display name) whose domain has at least one dot.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return false
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	return strings.Contains(domain, ".") && !strings.Contains(domain, "..") &&
		!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

package service

import (
	"sync"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/shopspring/decimal"
)

// WizardStep is the input a user is expected to send next.
type WizardStep int

const (
	StepNone WizardStep = iota
	StepPromoName
	StepPromoValue
	StepPromoLink
	StepWelcome
	StepPixPhoto
)

// Session is the short-lived conversation state of one user.
type Session struct {
	Product    *domain.Product
	Step       WizardStep
	PromoName  string
	PromoValue decimal.Decimal
	UpdatedAt  time.Time
}

// SessionService keeps conversation state in memory. Sessions idle for longer
// than the TTL are discarded on access.
type SessionService struct {
	mu       sync.Mutex
	clock    clock.Clock
	ttl      time.Duration
	sessions map[int64]*Session
}

func NewSessionService(clk clock.Clock) *SessionService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &SessionService{
		clock:    clk,
		ttl:      config.SessionTTL,
		sessions: make(map[int64]*Session),
	}
}

// Get returns a copy of the user's session.
func (s *SessionService) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.get(userID); sess != nil {
		return *sess
	}
	return Session{}
}

// Update applies fn to the user's session, creating it if needed.
func (s *SessionService) Update(userID int64, fn func(sess *Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(userID)
	if sess == nil {
		sess = &Session{}
		s.sessions[userID] = sess
	}
	fn(sess)
	sess.UpdatedAt = s.clock.Now()
}

func (s *SessionService) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *SessionService) SelectProduct(userID int64, p domain.Product) {
	s.Update(userID, func(sess *Session) { sess.Product = &p })
}

func (s *SessionService) SelectedProduct(userID int64) (domain.Product, bool) {
	sess := s.Get(userID)
	if sess.Product == nil {
		return domain.Product{}, false
	}
	return *sess.Product, true
}

// SetStep starts a wizard step and clears any draft from a previous one.
func (s *SessionService) SetStep(userID int64, step WizardStep) {
	s.Update(userID, func(sess *Session) {
		sess.Step = step
		if step == StepPromoName || step == StepNone {
			sess.PromoName = ""
			sess.PromoValue = decimal.Zero
		}
	})
}

func (s *SessionService) get(userID int64) *Session {
	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	if s.clock.Now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, userID)
		return nil
	}
	return sess
}

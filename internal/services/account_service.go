package services

import (
	"context"
	"sync"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/models/dtos"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"gorm.io/gorm"
)

// AuthResult is returned by every flow that signs a user in
type AuthResult struct {
	User   dtos.AccountView `json:"user"`
	Tokens *TokenPair       `json:"tokens"`
}

// AccountDeps wires an AccountService. Mailer, Notifier, Identity and
// ClubCache may be nil.
type AccountDeps struct {
	DB         *gorm.DB
	Users      *repositories.UserRepositoryGORM
	Profiles   *repositories.ProfileRepository
	Affiliates *repositories.AffiliateRepository
	OTPs       *repositories.OTPRepository
	Tokens     *repositories.RefreshTokenRepository
	Signer     *auth.TokenSigner
	Issuer     *TokenIssuer
	Retention  *TokenRetention
	OTP        OTPValidator
	Mailer     Mailer
	Notifier   LoginNotifier
	Identity   IdentityVerifier
	Tasks      TaskRunner
	ClubCache  common.CacheInterface
	Metrics    *metrics.MetricsRegistry

	BcryptCost     int
	GoogleAudience string
}

// AccountService orchestrates signup, login, activation, password recovery
// and logout.
type AccountService struct {
	db         *gorm.DB
	users      *repositories.UserRepositoryGORM
	profiles   *repositories.ProfileRepository
	affiliates *repositories.AffiliateRepository
	otps       *repositories.OTPRepository
	tokens     *repositories.RefreshTokenRepository
	signer     *auth.TokenSigner
	issuer     *TokenIssuer
	retention  *TokenRetention
	otp        OTPValidator
	mailer     Mailer
	notifier   LoginNotifier
	identity   IdentityVerifier
	tasks      TaskRunner
	clubCache  common.CacheInterface
	metrics    *metrics.MetricsRegistry

	provisioners   map[constants.UserType]ProfileProvisioner
	bcryptCost     int
	googleAudience string
	now            func() time.Time

	dummyHashOnce sync.Once
	dummyHash     string
}

func NewAccountService(deps AccountDeps) *AccountService {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = 10
	}
	return &AccountService{
		db:             deps.DB,
		users:          deps.Users,
		profiles:       deps.Profiles,
		affiliates:     deps.Affiliates,
		otps:           deps.OTPs,
		tokens:         deps.Tokens,
		signer:         deps.Signer,
		issuer:         deps.Issuer,
		retention:      deps.Retention,
		otp:            deps.OTP,
		mailer:         deps.Mailer,
		notifier:       deps.Notifier,
		identity:       deps.Identity,
		tasks:          deps.Tasks,
		clubCache:      deps.ClubCache,
		metrics:        deps.Metrics,
		provisioners:   defaultProvisioners(),
		bcryptCost:     cost,
		googleAudience: deps.GoogleAudience,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetProvisioner replaces the profile creation step for one user type.
func (s *AccountService) SetProvisioner(userType constants.UserType, p ProfileProvisioner) {
	s.provisioners[userType] = p
}

// Me returns the account view of an authenticated user.
func (s *AccountService) Me(ctx context.Context, userID string) (*dtos.AccountView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapFault("account lookup", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	profile, err := s.profiles.FindByUser(ctx, user.ID, user.UserType)
	if err != nil {
		return nil, wrapFault("account lookup", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	view := accountView(user, profile)
	return &view, nil
}

// Logout deletes every session of the user, or only the session jti when given.
func (s *AccountService) Logout(ctx context.Context, userID string, jti *string) error {
	n, err := s.tokens.DeleteForUser(ctx, userID, jti)
	if err != nil {
		return wrapFault("logout", err)
	}
	logging.Info("User logged out", "user_id", userID, "all_sessions", jti == nil, "tokens_deleted", n)
	return nil
}

// startSession issues a fresh pair for a new session and queues cleanup.
func (s *AccountService) startSession(ctx context.Context, user *gormModels.User, profile *repositories.ProfileRecord) (*AuthResult, error) {
	pair, err := s.issuer.Issue(ctx, user.ID, profile.ID, "")
	if err != nil {
		return nil, err
	}
	scheduleCleanup(s.tasks, s.retention, user.ID)
	return &AuthResult{User: accountView(user, profile), Tokens: pair}, nil
}

func (s *AccountService) loadProfile(ctx context.Context, user *gormModels.User) (*repositories.ProfileRecord, error) {
	profile, err := s.profiles.FindByUser(ctx, user.ID, user.UserType)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// submit queues a side effect; a nil runner drops it.
func (s *AccountService) submit(name string, fn func(ctx context.Context) error) {
	if s.tasks == nil {
		return
	}
	s.tasks.Submit(name, fn)
}

func (s *AccountService) sendActivation(email, code string) {
	if s.mailer == nil {
		return
	}
	s.submit("mail_activation", func(ctx context.Context) error {
		return s.mailer.SendActivation(ctx, email, code)
	})
}

func (s *AccountService) notifyLogin(user *gormModels.User, method, jti string) {
	if s.notifier == nil {
		return
	}
	event := LoginEvent{UserID: user.ID, Email: user.Email, Method: method, SessionID: jti, At: s.now()}
	s.submit("login_notification", func(ctx context.Context) error {
		return s.notifier.NotifyLogin(ctx, event)
	})
}

func accountView(user *gormModels.User, profile *repositories.ProfileRecord) dtos.AccountView {
	view := dtos.AccountView{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		UserType:          string(user.UserType),
		Status:            string(user.Status),
		UsesFederatedAuth: user.UsesFederatedAuth,
	}
	if profile != nil {
		view.ProfileID = profile.ID
		view.Avatar = profile.Avatar
		view.ClubID = profile.ClubID
		view.OnboardingStep = profile.OnboardingStep
		if view.Name == "" {
			view.Name = profile.Name
		}
	}
	return view
}

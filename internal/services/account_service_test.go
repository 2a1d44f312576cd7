package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Mock OTPValidator backed by the otps table. Codes are stored in clear.
type mockOTPValidator struct {
	otps *repositories.OTPRepository
	mu   sync.Mutex
	seq  int
}

func (m *mockOTPValidator) GenerateAndSave(ctx context.Context, email string, purpose constants.OTPType, userID *string) (string, error) {
	m.mu.Lock()
	m.seq++
	code := fmt.Sprintf("%06d", m.seq)
	m.mu.Unlock()

	if err := m.otps.RevokePending(ctx, email, purpose); err != nil {
		return "", err
	}
	row := &gormModels.OTP{
		Email:       email,
		Type:        purpose,
		UserID:      userID,
		CodeHash:    code,
		Status:      constants.OTPStatusPending,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().UTC().Add(10 * time.Minute),
	}
	if err := m.otps.Create(ctx, row); err != nil {
		return "", err
	}
	return code, nil
}

func (m *mockOTPValidator) Verify(ctx context.Context, email, code string, purpose constants.OTPType) (*OTPVerification, error) {
	row, err := m.otps.FindLatestPending(ctx, email, purpose)
	if err != nil {
		return nil, err
	}
	if row == nil || row.CodeHash != code {
		return nil, ErrInvalidOTP
	}
	ok, err := m.otps.Transition(ctx, row.ID, constants.OTPStatusPending, constants.OTPStatusUsed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}
	return &OTPVerification{ID: row.ID, Email: row.Email, Type: row.Type, User: row.User}, nil
}

// Mock Mailer keeping the last code sent to each address
type mockMailer struct {
	mu            sync.Mutex
	activation    map[string]string
	reset         map[string]string
	confirmations []string
}

func newMockMailer() *mockMailer {
	return &mockMailer{activation: map[string]string{}, reset: map[string]string{}}
}

func (m *mockMailer) SendActivation(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activation[email] = code
	return nil
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = code
	return nil
}

func (m *mockMailer) SendPasswordResetConfirmation(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, email)
	return nil
}

func (m *mockMailer) activationCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activation[email]
}

func (m *mockMailer) resetCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

// Mock IdentityVerifier resolving tokens from a fixed table
type mockIdentityVerifier struct {
	identities map[string]*FederatedIdentity
}

func (m *mockIdentityVerifier) VerifyIdentityToken(ctx context.Context, token, audience string) (*FederatedIdentity, error) {
	id, ok := m.identities[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return id, nil
}

// Mock LoginNotifier
type mockNotifier struct {
	mu     sync.Mutex
	events []LoginEvent
}

func (m *mockNotifier) NotifyLogin(ctx context.Context, event LoginEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// syncTasks runs submitted work inline so tests observe its effects
type syncTasks struct {
	mu    sync.Mutex
	names []string
}

func (s *syncTasks) Submit(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	_ = fn(context.Background())
}

type testEnv struct {
	db        *gorm.DB
	signer    *auth.TokenSigner
	tokens    *repositories.RefreshTokenRepository
	retention *TokenRetention
	svc       *AccountService
	rotator   *SessionRotator
	mailer    *mockMailer
	notifier  *mockNotifier
	identity  *mockIdentityVerifier
	otp       *mockOTPValidator
}

// Setup test database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T, maxActive int) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	signer := auth.NewTokenSigner(auth.SignerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		ResetSecret:   "reset-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      15 * time.Minute,
	})

	users := repositories.NewUserRepositoryGORM(db)
	tokens := repositories.NewRefreshTokenRepository(db)
	otps := repositories.NewOTPRepository(db)
	issuer := NewTokenIssuer(signer, tokens)
	retention := NewTokenRetention(tokens, maxActive, nil)
	tasks := &syncTasks{}

	env := &testEnv{
		db:        db,
		signer:    signer,
		tokens:    tokens,
		retention: retention,
		mailer:    newMockMailer(),
		notifier:  &mockNotifier{},
		identity:  &mockIdentityVerifier{identities: map[string]*FederatedIdentity{}},
		otp:       &mockOTPValidator{otps: otps},
	}

	env.svc = NewAccountService(AccountDeps{
		DB:         db,
		Users:      users,
		Profiles:   repositories.NewProfileRepository(db),
		Affiliates: repositories.NewAffiliateRepository(db),
		OTPs:       otps,
		Tokens:     tokens,
		Signer:     signer,
		Issuer:     issuer,
		Retention:  retention,
		OTP:        env.otp,
		Mailer:     env.mailer,
		Notifier:   env.notifier,
		Identity:   env.identity,
		Tasks:      tasks,
		BcryptCost: bcrypt.MinCost,
	})
	env.rotator = NewSessionRotator(db, users, tokens, signer, issuer, retention, tasks, nil)
	return env
}

// seedClub creates an ACTIVE club account with the given referral code
func seedClub(t *testing.T, env *testEnv, email, refCode string) *gormModels.ClubProfile {
	t.Helper()
	user := &gormModels.User{Email: email, Name: "Club", UserType: constants.UserTypeClub, Status: constants.UserStatusActive}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed club user: %v", err)
	}
	club := &gormModels.ClubProfile{UserID: user.ID, Name: "Club", RefCode: refCode}
	if err := env.db.Create(club).Error; err != nil {
		t.Fatalf("Failed to seed club profile: %v", err)
	}
	return club
}

// seedInvitedClub mimics the invitation flow: a PENDING club user with its profile
func seedInvitedClub(t *testing.T, env *testEnv, email, refCode string) (*gormModels.User, *gormModels.ClubProfile) {
	t.Helper()
	user := &gormModels.User{Email: email, UserType: constants.UserTypeClub, Status: constants.UserStatusPending}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed invited club: %v", err)
	}
	club := &gormModels.ClubProfile{UserID: user.ID, RefCode: refCode}
	if err := env.db.Create(club).Error; err != nil {
		t.Fatalf("Failed to seed invited club profile: %v", err)
	}
	return user, club
}

func seedInvitation(t *testing.T, env *testEnv, email, clubID string, userType constants.UserType) {
	t.Helper()
	aff := &gormModels.Affiliate{Email: email, ClubID: &clubID, Type: userType, Status: constants.AffiliateStatusPending}
	if err := env.db.Create(aff).Error; err != nil {
		t.Fatalf("Failed to seed invitation: %v", err)
	}
}

func expectCode(t *testing.T, err error, want *AccountError) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s, got nil", want.Code)
	}
	if !errors.Is(err, want) {
		t.Fatalf("Expected %s, got %v", want.Code, err)
	}
}

func expectValidation(t *testing.T, err error, code string) {
	t.Helper()
	var accErr *AccountError
	if !errors.As(err, &accErr) {
		t.Fatalf("Expected AccountError, got %v", err)
	}
	if accErr.Kind != KindValidation || accErr.Code != code {
		t.Fatalf("Expected validation %s, got %s %s", code, accErr.Kind, accErr.Code)
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

func signupPlayer(t *testing.T, env *testEnv, email string) (*AuthResult, *gormModels.ClubProfile) {
	t.Helper()
	club := seedClub(t, env, "club-"+email, "REF-"+email)
	seedInvitation(t, env, email, club.ID, constants.UserTypePlayer)

	res, err := env.svc.Signup(context.Background(), SignupInput{
		Name:     "Player One",
		UserType: constants.UserTypePlayer,
		Email:    email,
		Password: "s3cret-pass",
		RefCode:  club.RefCode,
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	return res, club
}

func TestAccountService_PlayerSignupThenLogin(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()

	res, club := signupPlayer(t, env, "p@x.com")

	if res.User.Status != string(constants.UserStatusPending) {
		t.Errorf("Expected PENDING, got %s", res.User.Status)
	}
	if res.User.ClubID != nil {
		t.Error("Expected no club on the profile before activation")
	}
	if res.Tokens == nil || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("Expected a token pair")
	}
	if env.mailer.activationCode("p@x.com") == "" {
		t.Error("Expected an activation code to be mailed")
	}

	var aff gormModels.Affiliate
	if err := env.db.Where("email = ? AND club_id = ?", "p@x.com", club.ID).First(&aff).Error; err != nil {
		t.Fatalf("Affiliate not found: %v", err)
	}
	if aff.Status != constants.AffiliateStatusActive || aff.UserID == nil || *aff.UserID != res.User.ID {
		t.Errorf("Expected ACTIVE affiliate bound to the user, got %+v", aff)
	}

	login, err := env.svc.Login(ctx, "  P@X.com ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	claims, err := env.signer.ParseAccess(login.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("Access token does not parse: %v", err)
	}
	if claims.Subject != res.User.ID || claims.ProfileID != res.User.ProfileID {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if login.Tokens.SessionID == res.Tokens.SessionID {
		t.Error("Expected login to start a new session")
	}
	if len(env.notifier.events) != 1 || env.notifier.events[0].Method != LoginMethodPassword {
		t.Errorf("Expected one password login event, got %+v", env.notifier.events)
	}
}

func TestAccountService_SignupRejectsTakenEmail(t *testing.T) {
	env := newTestEnv(t, 15)
	signupPlayer(t, env, "p@x.com")

	club := seedClub(t, env, "other@club.com", "OTHER")
	_, err := env.svc.Signup(context.Background(), SignupInput{
		Name: "Again", UserType: constants.UserTypeSupporter, Email: "p@x.com", Password: "pw", RefCode: club.RefCode,
	})
	expectCode(t, err, ErrEmailTaken)
}

func TestAccountService_SignupRefCodeRules(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	club := seedClub(t, env, "club@x.com", "GOOD")

	_, err := env.svc.Signup(ctx, SignupInput{Name: "S", UserType: constants.UserTypeSupporter, Email: "s@x.com", Password: "pw"})
	expectValidation(t, err, constants.ErrCodeInvalidRefCode)

	_, err = env.svc.Signup(ctx, SignupInput{Name: "S", UserType: constants.UserTypeSupporter, Email: "s@x.com", Password: "pw", RefCode: "NOPE"})
	expectValidation(t, err, constants.ErrCodeInvalidRefCode)

	// players need an invitation from the club
	_, err = env.svc.Signup(ctx, SignupInput{Name: "P", UserType: constants.UserTypePlayer, Email: "p@x.com", Password: "pw", RefCode: club.RefCode})
	expectValidation(t, err, constants.ErrCodeInvitationRequired)

	if n := countRows(t, env.db, &gormModels.User{}); n != 1 {
		t.Errorf("Expected only the club user, got %d users", n)
	}
}

func TestAccountService_SignupRollsBackWhenNoProfileCreated(t *testing.T) {
	env := newTestEnv(t, 15)
	club := seedClub(t, env, "club@x.com", "GOOD")

	env.svc.SetProvisioner(constants.UserTypeCompany, func(ctx context.Context, profiles *repositories.ProfileRepository, user *gormModels.User, in ProvisionInput) (*repositories.ProfileRecord, error) {
		return nil, nil
	})

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Name: "Acme", UserType: constants.UserTypeCompany, Email: "co@x.com", Password: "pw", RefCode: club.RefCode,
	})
	expectCode(t, err, ErrProfileCreationFailed)

	var n int64
	env.db.Model(&gormModels.User{}).Where("email = ?", "co@x.com").Count(&n)
	if n != 0 {
		t.Error("Expected the user insert to be rolled back")
	}
	if n := countRows(t, env.db, &gormModels.OTP{}); n != 0 {
		t.Errorf("Expected no OTP rows, got %d", n)
	}
	if n := countRows(t, env.db, &gormModels.Affiliate{}); n != 0 {
		t.Errorf("Expected no affiliate rows, got %d", n)
	}
	if env.mailer.activationCode("co@x.com") != "" {
		t.Error("Expected no activation mail")
	}
}

func TestAccountService_ClubSignupClaimsInvitation(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	invited, club := seedInvitedClub(t, env, "club@x.com", "CLUBREF")

	_, err := env.svc.Signup(ctx, SignupInput{Name: "FC", UserType: constants.UserTypeClub, Email: "club@x.com", Password: "pw", RefCode: "WRONG"})
	expectValidation(t, err, constants.ErrCodeInvitationRequired)

	_, err = env.svc.Signup(ctx, SignupInput{Name: "FC", UserType: constants.UserTypeClub, Email: "nobody@x.com", Password: "pw", RefCode: "CLUBREF"})
	expectValidation(t, err, constants.ErrCodeInvitationRequired)

	res, err := env.svc.Signup(ctx, SignupInput{Name: "FC United", UserType: constants.UserTypeClub, Email: "club@x.com", Password: "pw", RefCode: "CLUBREF"})
	if err != nil {
		t.Fatalf("Club signup failed: %v", err)
	}
	if res.User.ID != invited.ID || res.User.Status != string(constants.UserStatusActive) {
		t.Errorf("Expected the invited user to be ACTIVE, got %+v", res.User)
	}
	if res.User.ProfileID != club.ID || res.User.ClubID == nil || *res.User.ClubID != club.ID {
		t.Errorf("Expected club profile %s, got %+v", club.ID, res.User)
	}
	// the claimed club is ACTIVE already; the activation code is still issued
	if env.mailer.activationCode("club@x.com") == "" {
		t.Error("Expected club signup to send an activation code")
	}
	again, err := env.svc.ActivateAccount(ctx, "club@x.com", env.mailer.activationCode("club@x.com"))
	if err != nil {
		t.Fatalf("Club activation failed: %v", err)
	}
	if again.User.Status != string(constants.UserStatusActive) {
		t.Errorf("Expected ACTIVE club, got %s", again.User.Status)
	}

	var stored gormModels.ClubProfile
	env.db.First(&stored, "id = ?", club.ID)
	if stored.Name != "FC United" {
		t.Errorf("Expected club name to be updated, got %q", stored.Name)
	}

	if _, err := env.svc.Login(ctx, "club@x.com", "pw"); err != nil {
		t.Errorf("Expected claimed club to log in, got %v", err)
	}
}

func TestAccountService_LoginDoesNotRevealUnknownEmail(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	signupPlayer(t, env, "p@x.com")

	_, errUnknown := env.svc.Login(ctx, "ghost@x.com", "whatever")
	_, errWrong := env.svc.Login(ctx, "p@x.com", "whatever")

	expectCode(t, errUnknown, ErrInvalidCredentials)
	expectCode(t, errWrong, ErrInvalidCredentials)
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("Expected identical messages, got %q and %q", errUnknown, errWrong)
	}
}

func TestAccountService_ActivationPropagatesClubToPlayer(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	res, club := signupPlayer(t, env, "p@x.com")

	activated, err := env.svc.ActivateAccount(ctx, "p@x.com", env.mailer.activationCode("p@x.com"))
	if err != nil {
		t.Fatalf("Activation failed: %v", err)
	}
	if activated.User.Status != string(constants.UserStatusActive) {
		t.Errorf("Expected ACTIVE, got %s", activated.User.Status)
	}
	if activated.User.ClubID == nil || *activated.User.ClubID != club.ID {
		t.Errorf("Expected player club %s, got %v", club.ID, activated.User.ClubID)
	}

	// the code is spent
	_, err = env.svc.ActivateAccount(ctx, "p@x.com", env.mailer.activationCode("p@x.com"))
	expectCode(t, err, ErrInvalidOTP)

	err = env.svc.ResendActivationCode(ctx, "p@x.com")
	expectCode(t, err, ErrAlreadyActive)

	// activating an ACTIVE account only opens a session
	if err := env.db.Model(&gormModels.PlayerProfile{}).Where("user_id = ?", res.User.ID).Update("club_id", nil).Error; err != nil {
		t.Fatalf("Failed to clear club: %v", err)
	}
	code, err := env.otp.GenerateAndSave(ctx, "p@x.com", constants.OTPTypeEmailVerification, &res.User.ID)
	if err != nil {
		t.Fatalf("Failed to issue code: %v", err)
	}
	again, err := env.svc.ActivateAccount(ctx, "p@x.com", code)
	if err != nil {
		t.Fatalf("Repeat activation failed: %v", err)
	}
	if again.User.Status != string(constants.UserStatusActive) || again.Tokens.SessionID == activated.Tokens.SessionID {
		t.Errorf("Expected a new session for an ACTIVE user, got %+v", again)
	}
	var profile gormModels.PlayerProfile
	env.db.First(&profile, "user_id = ?", res.User.ID)
	if profile.ClubID != nil || again.User.ClubID != nil {
		t.Error("Expected repeat activation to leave the club untouched")
	}
}

func TestAccountService_ActivationLeavesSupporterWithoutClub(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	club := seedClub(t, env, "club@x.com", "GOOD")

	res, err := env.svc.Signup(ctx, SignupInput{Name: "Fan", UserType: constants.UserTypeSupporter, Email: "fan@x.com", Password: "pw", RefCode: club.RefCode})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	activated, err := env.svc.ActivateAccount(ctx, "fan@x.com", env.mailer.activationCode("fan@x.com"))
	if err != nil {
		t.Fatalf("Activation failed: %v", err)
	}
	if activated.User.ClubID != nil {
		t.Errorf("Supporter profile should not take the club, got %v", *activated.User.ClubID)
	}

	var profile gormModels.PlayerProfile
	env.db.First(&profile, "user_id = ?", res.User.ID)
	if profile.ClubID != nil {
		t.Error("Supporter profile row should have no club")
	}
	if profile.UserType != constants.UserTypeSupporter {
		t.Errorf("Expected SUPPORTER profile, got %s", profile.UserType)
	}
}

func TestAccountService_ResendActivationCode(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	signupPlayer(t, env, "p@x.com")
	first := env.mailer.activationCode("p@x.com")

	if err := env.svc.ResendActivationCode(ctx, "p@x.com"); err != nil {
		t.Fatalf("Resend failed: %v", err)
	}
	second := env.mailer.activationCode("p@x.com")
	if second == first {
		t.Fatal("Expected a new code")
	}

	_, err := env.svc.ActivateAccount(ctx, "p@x.com", first)
	expectCode(t, err, ErrInvalidOTP)
	if _, err := env.svc.ActivateAccount(ctx, "p@x.com", second); err != nil {
		t.Errorf("Expected the newest code to activate, got %v", err)
	}

	err = env.svc.ResendActivationCode(ctx, "ghost@x.com")
	expectCode(t, err, ErrUserNotFound)
}

func TestAccountService_FederatedSignupAndLogin(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	club := seedClub(t, env, "club@x.com", "GOOD")
	seedInvitation(t, env, "g@x.com", club.ID, constants.UserTypePlayer)
	env.identity.identities["good-token"] = &FederatedIdentity{Subject: "g-1", Email: "G@x.com", Name: "Gee", Picture: "https://img/g.png"}

	_, err := env.svc.FederatedSignup(ctx, "bad-token", constants.UserTypePlayer, club.RefCode)
	expectCode(t, err, ErrInvalidFederatedToken)

	res, err := env.svc.FederatedSignup(ctx, "good-token", constants.UserTypePlayer, club.RefCode)
	if err != nil {
		t.Fatalf("Federated signup failed: %v", err)
	}
	if res.User.Status != string(constants.UserStatusPending) || !res.User.UsesFederatedAuth {
		t.Errorf("Expected PENDING federated user, got %+v", res.User)
	}
	if res.User.ClubID != nil {
		t.Errorf("Expected no club before activation, got %v", *res.User.ClubID)
	}
	if res.User.Avatar == nil || *res.User.Avatar != "https://img/g.png" {
		t.Errorf("Expected avatar from the identity, got %v", res.User.Avatar)
	}
	code := env.mailer.activationCode("g@x.com")
	if code == "" {
		t.Fatal("Expected federated signup to send an activation code")
	}

	login, err := env.svc.FederatedLogin(ctx, "good-token")
	if err != nil {
		t.Fatalf("Federated login failed: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Errorf("Expected user %s, got %s", res.User.ID, login.User.ID)
	}

	activated, err := env.svc.ActivateAccount(ctx, "g@x.com", code)
	if err != nil {
		t.Fatalf("Activation failed: %v", err)
	}
	if activated.User.Status != string(constants.UserStatusActive) {
		t.Errorf("Expected ACTIVE after activation, got %s", activated.User.Status)
	}
	if activated.User.ClubID == nil || *activated.User.ClubID != club.ID {
		t.Errorf("Expected player club %s after activation", club.ID)
	}

	_, err = env.svc.Login(ctx, "g@x.com", "anything")
	expectCode(t, err, ErrUseFederatedAuth)

	err = env.svc.RequestPasswordReset(ctx, "g@x.com")
	expectCode(t, err, ErrGoogleAccountCannotReset)

	env.identity.identities["stranger"] = &FederatedIdentity{Email: "stranger@x.com", Name: "S"}
	_, err = env.svc.FederatedLogin(ctx, "stranger")
	expectCode(t, err, ErrUserNotFound)
}

func TestAccountService_FederatedLoginMarksPasswordAccount(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	res, _ := signupPlayer(t, env, "p@x.com")
	env.identity.identities["tok"] = &FederatedIdentity{Email: "p@x.com", Name: "Player One"}

	if _, err := env.svc.FederatedLogin(ctx, "tok"); err != nil {
		t.Fatalf("Federated login failed: %v", err)
	}

	var user gormModels.User
	env.db.First(&user, "id = ?", res.User.ID)
	if !user.UsesFederatedAuth {
		t.Error("Expected account to be marked federated")
	}
	// the password still works
	if _, err := env.svc.Login(ctx, "p@x.com", "s3cret-pass"); err != nil {
		t.Errorf("Expected password login to keep working, got %v", err)
	}
}

func TestAccountService_VerifyEmailCodeReturnsAffiliate(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	res, _ := signupPlayer(t, env, "p@x.com")

	out, err := env.svc.VerifyCode(ctx, "p@x.com", env.mailer.activationCode("p@x.com"), constants.OTPTypeEmailVerification)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if out.Email != "p@x.com" || out.UserID == nil || *out.UserID != res.User.ID {
		t.Errorf("Unexpected response %+v", out)
	}
	if out.AffiliateID == nil {
		t.Error("Expected the affiliate id")
	}
	if out.ResetToken != "" {
		t.Error("Email verification must not hand out a reset token")
	}

	_, err = env.svc.VerifyCode(ctx, "p@x.com", "000000", constants.OTPType("BOGUS"))
	expectValidation(t, err, constants.ErrCodeValidation)
}

func TestAccountService_Me(t *testing.T) {
	env := newTestEnv(t, 15)
	res, _ := signupPlayer(t, env, "p@x.com")

	view, err := env.svc.Me(context.Background(), res.User.ID)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if view.Email != "p@x.com" || view.ProfileID != res.User.ProfileID {
		t.Errorf("Unexpected view %+v", view)
	}

	_, err = env.svc.Me(context.Background(), "missing")
	expectCode(t, err, ErrUserNotFound)
}

func TestWrapFault_HidesUnknownErrors(t *testing.T) {
	err := wrapFault("login", errors.New("connection reset"))

	var accErr *AccountError
	if !errors.As(err, &accErr) {
		t.Fatalf("Expected AccountError, got %T", err)
	}
	if accErr.Kind != KindInternal || accErr.Message != "login failed" {
		t.Errorf("Unexpected error %+v", accErr)
	}
	if wrapFault("login", ErrSessionMismatch) != ErrSessionMismatch {
		t.Error("Expected AccountErrors to pass through unchanged")
	}
	if wrapFault("login", nil) != nil {
		t.Error("Expected nil to stay nil")
	}
}

func TestAccountService_FederatedLoginRefusesInvitedClub(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	invited, _ := seedInvitedClub(t, env, "club@x.com", "CLUBREF")
	env.identity.identities["club-token"] = &FederatedIdentity{Email: "club@x.com", Name: "FC"}

	_, err := env.svc.FederatedLogin(ctx, "club-token")
	expectValidation(t, err, constants.ErrCodeInvitationRequired)

	var user gormModels.User
	env.db.First(&user, "id = ?", invited.ID)
	if user.UsesFederatedAuth || user.Status != constants.UserStatusPending {
		t.Errorf("Expected the invitation to stay untouched, got %+v", user)
	}
	if countRows(t, env.db, &gormModels.RefreshToken{}) != 0 {
		t.Error("Expected no session for an unclaimed club")
	}

	if _, err := env.svc.FederatedSignup(ctx, "club-token", constants.UserTypeClub, "CLUBREF"); err != nil {
		t.Fatalf("Federated club signup failed: %v", err)
	}
	if _, err := env.svc.FederatedLogin(ctx, "club-token"); err != nil {
		t.Errorf("Expected claimed club to sign in, got %v", err)
	}
}

func TestAccountService_RefCodeLookupIsCached(t *testing.T) {
	env := newTestEnv(t, 15)
	ctx := context.Background()
	env.svc.clubCache = common.NewCacheService(time.Minute, time.Minute)

	// an unknown code is not remembered
	_, err := env.svc.Signup(ctx, SignupInput{Name: "Co", UserType: constants.UserTypeCompany, Email: "co1@x.com", Password: "pw", RefCode: "LATER"})
	expectValidation(t, err, constants.ErrCodeInvalidRefCode)

	club := seedClub(t, env, "club@x.com", "LATER")
	if _, err := env.svc.Signup(ctx, SignupInput{Name: "Co", UserType: constants.UserTypeCompany, Email: "co1@x.com", Password: "pw", RefCode: "LATER"}); err != nil {
		t.Fatalf("Signup with the new club failed: %v", err)
	}

	// a hit is served from the cache
	if err := env.db.Model(&gormModels.ClubProfile{}).Where("id = ?", club.ID).Update("ref_code", "MOVED").Error; err != nil {
		t.Fatalf("Failed to change ref code: %v", err)
	}
	if _, err := env.svc.Signup(ctx, SignupInput{Name: "Co", UserType: constants.UserTypeCompany, Email: "co2@x.com", Password: "pw", RefCode: "LATER"}); err != nil {
		t.Errorf("Expected the cached club to resolve, got %v", err)
	}
}

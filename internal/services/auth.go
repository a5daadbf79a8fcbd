package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/types"
  "github.com/notelet/notelet-backend/internal/utils"
)

type TokenPair struct {
  AccessToken  string `json:"access_token"`
  RefreshToken string `json:"refresh_token"`
  ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
  Register(ctx context.Context, email string, password string, name string) (*types.User, *TokenPair, error)
  Login(ctx context.Context, email string, password string) (*types.User, *TokenPair, error)
  Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
  Logout(ctx context.Context, userID uuid.UUID) error
  ParseAccessToken(tokenString string) (uuid.UUID, error)
}

type authService struct {
  log        *logger.Logger
  userRepo   repos.UserRepo
  tokenRepo  repos.UserTokenRepo
  secret     []byte
  accessTTL  time.Duration
  refreshTTL time.Duration
}

func NewAuthService(baseLog *logger.Logger, userRepo repos.UserRepo, tokenRepo repos.UserTokenRepo) AuthService {
  serviceLog := baseLog.With("service", "AuthService")
  secret := utils.GetEnv("JWT_SECRET", "", serviceLog)
  if secret == "" {
    serviceLog.Fatal("JWT_SECRET is required")
  }
  accessMinutes := utils.GetEnvAsInt("JWT_ACCESS_TTL_MINUTES", 15, serviceLog)
  refreshDays := utils.GetEnvAsInt("JWT_REFRESH_TTL_DAYS", 30, serviceLog)
  return &authService{
    log:        serviceLog,
    userRepo:   userRepo,
    tokenRepo:  tokenRepo,
    secret:     []byte(secret),
    accessTTL:  time.Duration(accessMinutes) * time.Minute,
    refreshTTL: time.Duration(refreshDays) * 24 * time.Hour,
  }
}

func (s *authService) Register(ctx context.Context, email string, password string, name string) (*types.User, *TokenPair, error) {
  email = strings.ToLower(strings.TrimSpace(email))
  if email == "" || !strings.Contains(email, "@") {
    return nil, nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
  }
  if len(password) < 8 {
    return nil, nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
  }

  existing, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to check existing user: %w", err)
  }
  if len(existing) > 0 {
    return nil, nil, fmt.Errorf("%w: email already registered", ErrValidation)
  }

  hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to hash password: %w", err)
  }

  now := time.Now()
  user := &types.User{
    ID:        uuid.New(),
    Email:     email,
    Password:  string(hash),
    Name:      strings.TrimSpace(name),
    CreatedAt: now,
    UpdatedAt: now,
  }
  if _, err := s.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
    return nil, nil, fmt.Errorf("Failed to create user: %w", err)
  }

  pair, err := s.issueTokens(ctx, user.ID)
  if err != nil {
    return nil, nil, err
  }
  s.log.Info("User registered", "user_id", user.ID)
  return user, pair, nil
}

func (s *authService) Login(ctx context.Context, email string, password string) (*types.User, *TokenPair, error) {
  email = strings.ToLower(strings.TrimSpace(email))
  users, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to load user: %w", err)
  }
  if len(users) == 0 {
    return nil, nil, fmt.Errorf("%w: invalid credentials", ErrValidation)
  }
  user := users[0]

  if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
    return nil, nil, fmt.Errorf("%w: invalid credentials", ErrValidation)
  }

  pair, err := s.issueTokens(ctx, user.ID)
  if err != nil {
    return nil, nil, err
  }
  return user, pair, nil
}

// Refresh rotates the token pair: the presented refresh token must both
// verify and still exist in user_token, and rotation drops every stored
// token for the user before issuing new ones.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
  userID, tokenType, err := s.parseToken(refreshToken)
  if err != nil || tokenType != "refresh" {
    return nil, fmt.Errorf("%w: invalid refresh token", ErrValidation)
  }

  stored, err := s.tokenRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load refresh tokens: %w", err)
  }
  now := time.Now()
  valid := false
  for _, t := range stored {
    if t.RefreshToken == refreshToken && t.ExpiresAt.After(now) {
      valid = true
      break
    }
  }
  if !valid {
    return nil, fmt.Errorf("%w: refresh token revoked or expired", ErrValidation)
  }

  if err := s.tokenRepo.FullDeleteByUserIDs(ctx, nil, []uuid.UUID{userID}); err != nil {
    return nil, fmt.Errorf("Failed to rotate refresh tokens: %w", err)
  }
  return s.issueTokens(ctx, userID)
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
  if err := s.tokenRepo.FullDeleteByUserIDs(ctx, nil, []uuid.UUID{userID}); err != nil {
    return fmt.Errorf("Failed to delete refresh tokens: %w", err)
  }
  return nil
}

func (s *authService) ParseAccessToken(tokenString string) (uuid.UUID, error) {
  userID, tokenType, err := s.parseToken(tokenString)
  if err != nil {
    return uuid.Nil, err
  }
  if tokenType != "access" {
    return uuid.Nil, fmt.Errorf("%w: not an access token", ErrValidation)
  }
  return userID, nil
}

func (s *authService) issueTokens(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
  access, err := s.signToken(userID, "access", s.accessTTL)
  if err != nil {
    return nil, fmt.Errorf("Failed to sign access token: %w", err)
  }
  refresh, err := s.signToken(userID, "refresh", s.refreshTTL)
  if err != nil {
    return nil, fmt.Errorf("Failed to sign refresh token: %w", err)
  }

  record := &types.UserToken{
    ID:           uuid.New(),
    UserID:       userID,
    RefreshToken: refresh,
    ExpiresAt:    time.Now().Add(s.refreshTTL),
    CreatedAt:    time.Now(),
  }
  if _, err := s.tokenRepo.Create(ctx, nil, []*types.UserToken{record}); err != nil {
    return nil, fmt.Errorf("Failed to store refresh token: %w", err)
  }

  return &TokenPair{
    AccessToken:  access,
    RefreshToken: refresh,
    ExpiresIn:    int64(s.accessTTL.Seconds()),
  }, nil
}

func (s *authService) signToken(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
  now := time.Now()
  // jti keeps tokens unique even when two are signed within the same second
  claims := jwt.MapClaims{
    "sub":  userID.String(),
    "type": tokenType,
    "jti":  uuid.NewString(),
    "iat":  now.Unix(),
    "exp":  now.Add(ttl).Unix(),
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString(s.secret)
}

func (s *authService) parseToken(tokenString string) (uuid.UUID, string, error) {
  token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
    }
    return s.secret, nil
  })
  if err != nil || !token.Valid {
    return uuid.Nil, "", fmt.Errorf("%w: invalid token", ErrValidation)
  }

  claims, ok := token.Claims.(jwt.MapClaims)
  if !ok {
    return uuid.Nil, "", fmt.Errorf("%w: malformed claims", ErrValidation)
  }
  sub, _ := claims["sub"].(string)
  tokenType, _ := claims["type"].(string)
  userID, err := uuid.Parse(sub)
  if err != nil {
    return uuid.Nil, "", fmt.Errorf("%w: malformed subject", ErrValidation)
  }
  return userID, tokenType, nil
}

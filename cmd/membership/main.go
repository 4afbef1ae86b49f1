package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ugurCengiz/membership/pkg/app"
	"github.com/ugurCengiz/membership/pkg/config"
	"github.com/ugurCengiz/membership/pkg/emailverification"
	verificationapi "github.com/ugurCengiz/membership/pkg/emailverification/api"
	"github.com/ugurCengiz/membership/pkg/externallogin"
	externalapi "github.com/ugurCengiz/membership/pkg/externallogin/api"
	"github.com/ugurCengiz/membership/pkg/lockout"
	"github.com/ugurCengiz/membership/pkg/login"
	loginapi "github.com/ugurCengiz/membership/pkg/login/api"
	"github.com/ugurCengiz/membership/pkg/notification"
	"github.com/ugurCengiz/membership/pkg/ratelimit"
	"github.com/ugurCengiz/membership/pkg/sessions"
	"github.com/ugurCengiz/membership/pkg/signup"
	"github.com/ugurCengiz/membership/pkg/user"
)

type DbConfig struct {
	Host     string `env:"MEMBERSHIP_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"MEMBERSHIP_PG_PORT" env-default:"5432"`
	Database string `env:"MEMBERSHIP_PG_DATABASE" env-default:"membership_db"`
	User     string `env:"MEMBERSHIP_PG_USER" env-default:"membership"`
	Password string `env:"MEMBERSHIP_PG_PASSWORD" env-default:"pwd"`
}

func (d DbConfig) toDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type JwtConfig struct {
	Secret       string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer       string `env:"JWT_ISSUER" env-default:"membership"`
	Audience     string `env:"JWT_AUDIENCE" env-default:"membership-app"`
	CookieSecure bool   `env:"COOKIE_SECURE" env-default:"false"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
}

type LoginEnvConfig struct {
	MaxFailedAttempts  int    `env:"LOGIN_MAX_FAILED_ATTEMPTS" env-default:"3"`
	LockoutDuration    string `env:"LOGIN_LOCKOUT_DURATION" env-default:"PT20M"`
	RememberMeDuration string `env:"LOGIN_REMEMBER_ME_DURATION" env-default:"P30D"`
	PasswordMinLength  int    `env:"PASSWORD_MIN_LENGTH" env-default:"8"`
}

type OAuthConfig struct {
	GoogleClientID       string `env:"OAUTH_GOOGLE_CLIENT_ID" env-default:""`
	GoogleClientSecret   string `env:"OAUTH_GOOGLE_CLIENT_SECRET" env-default:""`
	FacebookClientID     string `env:"OAUTH_FACEBOOK_CLIENT_ID" env-default:""`
	FacebookClientSecret string `env:"OAUTH_FACEBOOK_CLIENT_SECRET" env-default:""`
}

type Config struct {
	AppConfig      app.AppConfig
	DbConfig       DbConfig
	JwtConfig      JwtConfig
	EmailConfig    EmailConfig
	LoginConfig    LoginEnvConfig
	OAuthConfig    OAuthConfig
	BaseURL        string `env:"BASE_URL" env-default:"http://localhost:8080"`
}

func main() {
	godotenv.Load()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading config from env", "err", err)
		os.Exit(-1)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DbConfig.toDSN())
	if err != nil {
		slog.Error("Failed creating dbpool",
			"db", cfg.DbConfig.Database, "host", cfg.DbConfig.Host, "port", cfg.DbConfig.Port)
		os.Exit(-1)
	}
	defer pool.Close()

	notificationManager, err := notification.NewNotificationManagerWithOptions(cfg.BaseURL,
		notification.WithSMTP(notification.SMTPConfig{
			Host:     cfg.EmailConfig.Host,
			Port:     cfg.EmailConfig.Port,
			TLS:      cfg.EmailConfig.TLS,
			Username: cfg.EmailConfig.Username,
			Password: cfg.EmailConfig.Password,
			From:     cfg.EmailConfig.From,
		}),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	loginCfg := config.LoginConfig{
		MaxFailedAttempts:  cfg.LoginConfig.MaxFailedAttempts,
		LockoutDuration:    cfg.LoginConfig.LockoutDuration,
		RememberMeDuration: cfg.LoginConfig.RememberMeDuration,
	}
	lockoutDuration, err := loginCfg.ParseLockoutDuration()
	if err != nil {
		slog.Error("Invalid lockout duration", "value", loginCfg.LockoutDuration, "err", err)
		os.Exit(-1)
	}
	rememberMeDuration, err := loginCfg.ParseRememberMeDuration()
	if err != nil {
		slog.Error("Invalid remember-me duration", "value", loginCfg.RememberMeDuration, "err", err)
		os.Exit(-1)
	}
	passwordCfg := config.PasswordConfig{MinLength: cfg.LoginConfig.PasswordMinLength}

	users := user.NewPostgresUserRepository(pool)

	verificationService := emailverification.NewService(
		emailverification.NewPostgresTokenRepository(pool), users, notificationManager)

	loginService := login.NewLoginService(
		users,
		login.NewPostgresResetTokenRepository(pool),
		notificationManager,
		lockout.NewPolicy(int32(loginCfg.MaxFailedAttempts), lockoutDuration),
	)

	registrationService := signup.NewRegistrationService(users, verificationService,
		signup.WithPasswordConfig(passwordCfg))

	externalService := externallogin.NewService(users)
	providers := externallogin.NewProviderRegistry()
	if cfg.OAuthConfig.GoogleClientID != "" {
		providers.Register(externallogin.NewGoogleProvider(
			cfg.OAuthConfig.GoogleClientID,
			cfg.OAuthConfig.GoogleClientSecret,
			cfg.BaseURL+"/external/google/callback",
		))
	}
	if cfg.OAuthConfig.FacebookClientID != "" {
		providers.Register(externallogin.NewFacebookProvider(
			cfg.OAuthConfig.FacebookClientID,
			cfg.OAuthConfig.FacebookClientSecret,
			cfg.BaseURL+"/external/facebook/callback",
		))
	}

	sessionManager := sessions.NewManager(
		cfg.JwtConfig.Secret, cfg.JwtConfig.Issuer, cfg.JwtConfig.Audience,
		sessions.WithRememberMeDuration(rememberMeDuration),
		sessions.WithSecureCookies(cfg.JwtConfig.CookieSecure),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(ratelimit.NewMiddleware(ratelimit.DefaultConfig()).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})

	signup.NewHandle(registrationService).RegisterRoutes(r)
	verificationapi.NewHandle(verificationService).RegisterRoutes(r)
	loginapi.NewHandle(loginService, sessionManager,
		loginapi.WithPasswordConfig(passwordCfg)).RegisterRoutes(r)
	externalapi.NewHandle(externalService, providers, sessionManager,
		externalapi.WithSecureCookies(cfg.JwtConfig.CookieSecure)).RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.Verifier())
		r.Use(sessionManager.Authenticator())

		r.Get("/member/me", func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := sessions.CurrentUser(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			u, err := users.FindUserByID(r.Context(), authUser.UserID)
			if err != nil {
				slog.Error("Failed getting current user", "user_id", authUser.UserID, "err", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			render.JSON(w, r, map[string]interface{}{
				"id":              u.ID,
				"username":        u.Username,
				"email":           u.Email,
				"phone_number":    u.PhoneNumber,
				"email_confirmed": u.EmailConfirmed,
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.AppConfig.Host, cfg.AppConfig.Port)
	slog.Info("Starting membership server", "addr", addr, "providers", providers.Names())
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(-1)
	}
}

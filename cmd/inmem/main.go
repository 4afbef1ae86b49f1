// Demo server running entirely in memory: no Postgres, no SMTP. Emails are
// logged instead of sent, so confirmation and reset links can be copied from
// the console. Useful for trying the API and for frontend development.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ugurCengiz/membership/pkg/app"
	"github.com/ugurCengiz/membership/pkg/emailverification"
	verificationapi "github.com/ugurCengiz/membership/pkg/emailverification/api"
	"github.com/ugurCengiz/membership/pkg/lockout"
	"github.com/ugurCengiz/membership/pkg/login"
	loginapi "github.com/ugurCengiz/membership/pkg/login/api"
	"github.com/ugurCengiz/membership/pkg/notification"
	"github.com/ugurCengiz/membership/pkg/sessions"
	"github.com/ugurCengiz/membership/pkg/signup"
	"github.com/ugurCengiz/membership/pkg/user"
)

// consoleNotifier writes notices to the log instead of delivering them.
type consoleNotifier struct{}

func (consoleNotifier) Send(noticeType notification.NoticeType, data notification.NotificationData, template notification.NoticeTemplate) error {
	slog.Info("Would send notice",
		"type", noticeType,
		"to", data.To,
		"link", data.Data["Link"],
	)
	return nil
}

type Config struct {
	AppConfig app.AppConfig
	JwtSecret string `env:"JWT_SECRET" env-default:"inmem-demo-secret"`
	BaseURL   string `env:"BASE_URL" env-default:"http://localhost:8080"`
}

func main() {
	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	notificationManager := notification.NewNotificationManager(cfg.BaseURL)
	notificationManager.RegisterNotifier(notification.EmailSystem, consoleNotifier{})
	for _, noticeType := range []notification.NoticeType{
		notification.EmailConfirmationNotice,
		notification.PasswordResetNotice,
	} {
		if err := notificationManager.RegisterNotification(noticeType, notification.EmailSystem, notification.NoticeTemplate{
			Subject: string(noticeType),
			Text:    "{{.Link}}",
		}); err != nil {
			slog.Error("Failed registering notice template", "type", noticeType, "err", err)
			os.Exit(-1)
		}
	}

	users := user.NewInMemUserRepository()

	verificationService := emailverification.NewService(
		emailverification.NewInMemTokenRepository(), users, notificationManager)

	loginService := login.NewLoginService(
		users,
		login.NewInMemResetTokenRepository(),
		notificationManager,
		lockout.NewPolicy(3, 20*time.Minute),
	)

	registrationService := signup.NewRegistrationService(users, verificationService)

	sessionManager := sessions.NewManager(cfg.JwtSecret, "membership", "membership-app",
		sessions.WithSecureCookies(false))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	signup.NewHandle(registrationService).RegisterRoutes(r)
	verificationapi.NewHandle(verificationService).RegisterRoutes(r)
	loginapi.NewHandle(loginService, sessionManager).RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.Verifier())
		r.Use(sessionManager.Authenticator())
		r.Get("/member/me", func(w http.ResponseWriter, r *http.Request) {
			authUser, _ := sessions.CurrentUser(r.Context())
			render.JSON(w, r, authUser)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.AppConfig.Host, cfg.AppConfig.Port)
	slog.Info("Starting in-memory membership server", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(-1)
	}
}

package main

import (
	"log"

	"ticketdesk-backend/cmd/api"
	mailboxdelivery "ticketdesk-backend/internal/mailbox/delivery"
	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	mailboxrepo "ticketdesk-backend/internal/mailbox/repository"
	mailboxusecase "ticketdesk-backend/internal/mailbox/usecase"
	"ticketdesk-backend/internal/scheduler"
	syncdelivery "ticketdesk-backend/internal/sync/delivery"
	syncusecase "ticketdesk-backend/internal/sync/usecase"
	ticketdelivery "ticketdesk-backend/internal/ticket/delivery"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	ticketrepo "ticketdesk-backend/internal/ticket/repository"
	ticketusecase "ticketdesk-backend/internal/ticket/usecase"
	"ticketdesk-backend/pkg/ai"
	"ticketdesk-backend/pkg/config"
	"ticketdesk-backend/pkg/database"
	"ticketdesk-backend/pkg/gemini"
	"ticketdesk-backend/pkg/gmail"
)

func main() {
	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatalf("[Main] database connection failed: %v", err)
	}

	err = db.AutoMigrate(
		&mailboxdomain.OAuthToken{},
		&ticketdomain.Ticket{},
		&ticketdomain.SyncState{},
		&ticketdomain.BlacklistedSender{},
	)
	if err != nil {
		log.Fatalf("[Main] migration failed: %v", err)
	}

	// Infrastructure.
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	geminiService := gemini.NewService(cfg.GeminiAPIKey, cfg.GeminiModel)
	assistant := ai.NewService(geminiService)

	// Repositories.
	ticketRepo := ticketrepo.NewTicketRepository(db)
	syncStateRepo := ticketrepo.NewSyncStateRepository(db)
	blacklistRepo := ticketrepo.NewBlacklistRepository(db)
	tokenRepo := mailboxrepo.NewOAuthTokenRepository(db)
	uow := ticketrepo.NewUnitOfWork(db)

	// Use cases.
	session := mailboxusecase.NewSessionSource(tokenRepo)
	classifier := syncusecase.NewDirectionClassifier(cfg.MyEmails)
	reconciler := syncusecase.NewThreadReconciler(classifier, assistant)
	orchestrator := syncusecase.NewOrchestrator(gmailService, session, uow, reconciler, cfg)
	ticketService := ticketusecase.NewTicketService(ticketRepo, blacklistRepo, syncStateRepo, gmailService, session, assistant)

	// Delivery.
	router := api.SetupRouter(&api.RouterDeps{
		Auth:    mailboxdelivery.NewAuthHandler(gmailService.OAuthConfig(cfg.GoogleRedirectURI), session),
		Sync:    syncdelivery.NewSyncHandler(orchestrator),
		Tickets: ticketdelivery.NewTicketHandler(ticketService),
	})

	if cfg.EnableScheduler {
		scheduler.New("inbox-poll", cfg.PollInterval, scheduler.NewPollJob(orchestrator, cfg)).Start()
		scheduler.New("reminders", cfg.ReminderInterval, scheduler.NewReminderJob(ticketRepo, gmailService, session, cfg)).Start()
		scheduler.New("escalation", cfg.ReminderInterval, scheduler.NewEscalationJob(ticketRepo)).Start()
	}

	log.Printf("[Main] listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("[Main] server failed: %v", err)
	}
}

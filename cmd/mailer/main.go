package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/mail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatalf("RABBITMQ_URL is required for the mailer")
	}

	renderer, err := mail.NewRenderer(cfg.AppName)
	if err != nil {
		log.Fatalf("failed to load mail templates: %v", err)
	}
	sender := mail.NewSMTPSender(cfg, renderer)
	consumer := mail.NewConsumer(cfg.RabbitMQURL, cfg.MailQueue, sender.Deliver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Mailer consuming %s, delivering through %s:%d", cfg.MailQueue, cfg.SMTPHost, cfg.SMTPPort)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("mailer stopped: %v", err)
	}
	log.Println("Mailer stopped")
}

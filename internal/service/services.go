package service

import (
	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/mail"
	"github.com/dom/account-api/internal/repository"
)

type Services struct {
	Token   *TokenService
	Account *AccountService
	User    *UserService
	Role    *RoleService
	Access  *AccessService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, mailer mail.Dispatcher, events EventPublisher) *Services {
	tokens := NewTokenService(cfg, repos.Blacklist)
	return &Services{
		Token:   tokens,
		Account: NewAccountService(repos, tokens, mailer, events, cfg),
		User:    NewUserService(repos, mailer, events, cfg),
		Role:    NewRoleService(repos.Role),
		Access:  NewAccessService(repos.User),
	}
}

package database

import (
	"github.com/tripnest/booking-service/internal/adapter/repository"
	domainRepo "github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances.
type Repositories struct {
	Customer     domainRepo.CustomerRepository
	Resource     domainRepo.ResourceRepository
	Booking      domainRepo.BookingRepository
	Transaction  domainRepo.TransactionRepository
	Subscription domainRepo.SubscriptionRepository
	Plan         domainRepo.PlanRepository
	Payment      domainRepo.PaymentRepository
	Webhook      domainRepo.WebhookRepository
	Tx           domainRepo.TxManager
}

// NewRepositories wires repository instances to the database connection.
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Customer:     repository.NewCustomerRepository(db, logger),
		Resource:     repository.NewResourceRepository(db, logger),
		Booking:      repository.NewBookingRepository(db, logger),
		Transaction:  repository.NewTransactionRepository(db, logger),
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Plan:         repository.NewPlanRepository(db, logger),
		Payment:      repository.NewPaymentRepository(db, logger),
		Webhook:      repository.NewWebhookRepository(db, logger),
		Tx:           repository.NewTxManager(db),
	}
}

package repository

import "gorm.io/gorm"

// Stores groups every repository the services depend on, sharing one transaction manager.
type Stores struct {
	Users       UserRepository
	Donations   DonationRepository
	BuyRequests BuyRequestRepository
	Collectors  CollectorRepository
	Audit       AuditRepository
	Stats       StatsRepository
	Tx          TransactionManager
}

// NewStores wires the gorm repositories around db
func NewStores(db *gorm.DB) Stores {
	return Stores{
		Users:       NewUserRepository(db),
		Donations:   NewDonationRepository(db),
		BuyRequests: NewBuyRequestRepository(db),
		Collectors:  NewCollectorRepository(db),
		Audit:       NewAuditRepository(db),
		Stats:       NewStatsRepository(db),
		Tx:          NewTransactionManager(db),
	}
}

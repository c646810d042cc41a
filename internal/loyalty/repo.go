package loyalty

import (
	"context"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages loyalty balances and the append-only ledger. Balance
// mutations are atomic store-level updates, never read-modify-write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	IncrementBalance(ctx context.Context, userID uuid.UUID, points int) error
	DecrementBalanceIfSufficient(ctx context.Context, userID uuid.UUID, points int) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loyalty repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetAccount returns a zero-balance account when no row exists yet.
func (r *repository) GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return &models.LoyaltyAccount{UserID: userID, Balance: 0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// IncrementBalance upserts the account row, adding points to any existing
// balance in a single statement.
func (r *repository) IncrementBalance(ctx context.Context, userID uuid.UUID, points int) error {
	account := models.LoyaltyAccount{UserID: userID, Balance: points}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance": gorm.Expr("balance + ?", points),
		}),
	}).Create(&account).Error
}

// DecrementBalanceIfSufficient applies "balance = balance - points" only
// when the guard holds. A false return means the balance was too low.
func (r *repository) DecrementBalanceIfSufficient(ctx context.Context, userID uuid.UUID, points int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("user_id = ? AND balance >= ?", userID, points).
		UpdateColumn("balance", gorm.Expr("balance - ?", points))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error) {
	var txns []models.LoyaltyTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

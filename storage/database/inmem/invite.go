package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invite"
)

type inviteRepository struct {
	db *inviteTable
}

var _ invite.Repository = (*inviteRepository)(nil)

func NewInviteRepository(db *DB) *inviteRepository {
	return &inviteRepository{db: db.invite}
}

func (repo *inviteRepository) query() []invite.Invite {
	invs := make([]invite.Invite, 0, len(repo.db.table))
	for _, inv := range repo.db.table {
		invs = append(invs, *inv)
	}
	sort.Slice(invs, func(i, j int) bool {
		if invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].ID < invs[j].ID
		}
		return invs[i].CreatedAt.Before(invs[j].CreatedAt)
	})
	return invs
}

func (repo *inviteRepository) CreateInvite(ctx context.Context, inv invite.Invite) (invite.Invite, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv.ID = uuid.New().String()
	repo.db.table[inv.ID] = &inv
	return inv, nil
}

func (repo *inviteRepository) QueryInvites(ctx context.Context, filter *invite.QueryFilter, ordering []core.DBOrdering) ([]invite.Invite, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invs := repo.query()
	if filter == nil {
		return invs, nil
	}

	matched := make([]invite.Invite, 0, len(invs))
	for _, inv := range invs {
		if filter.Search != "" && !(containsFold(inv.Name, filter.Search) || containsFold(inv.Email, filter.Search)) {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.CohortID != "" && inv.CohortID != filter.CohortID {
			continue
		}
		matched = append(matched, inv)
	}
	return matched, nil
}

func (repo *inviteRepository) GetInvite(ctx context.Context, id string) (invite.Invite, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.table[id]; ok {
		return *inv, nil
	}
	return invite.Invite{}, invite.ErrNotFound
}

func (repo *inviteRepository) GetInviteByToken(ctx context.Context, token string) (invite.Invite, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inv := range repo.db.table {
		if inv.Token == token {
			return *inv, nil
		}
	}
	return invite.Invite{}, invite.ErrNotFound
}

func (repo *inviteRepository) PendingInviteExists(ctx context.Context, email string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now().UTC()
	for _, inv := range repo.db.table {
		if inv.Email == email && inv.Pending(now) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *inviteRepository) UpdateInvite(ctx context.Context, inv invite.Invite) (invite.Invite, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[inv.ID]
	if !ok {
		return invite.Invite{}, invite.ErrNotFound
	}
	orig.Status = inv.Status
	orig.Token = inv.Token
	orig.ExpiresAt = inv.ExpiresAt
	orig.UpdatedAt = inv.UpdatedAt
	return *orig, nil
}

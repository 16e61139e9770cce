package memory

import (
	"context"
	"sync"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// Directory is an in-memory game.UserDirectory. The websocket transport
// registers each joining user; leaderboards look names back up here.
type Directory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]domain.User)}
}

func (d *Directory) Put(user domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *Directory) Lookup(_ context.Context, userID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if user, ok := d.users[userID]; ok {
		return user, nil
	}
	return domain.User{ID: userID, DisplayName: userID}, nil
}

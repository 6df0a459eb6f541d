// Package inmemdb provides map-backed repositories used by tests and local
// development. Behavior mirrors the PostgreSQL repositories.
package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/invite"
	"github.com/darasahq/darasa/core/invoice"
	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

type (
	DB struct {
		user     *userTable
		invite   *inviteTable
		catalog  *catalogTable
		resource *resourceTable
		invoice  *invoiceTable
		session  *sessionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	inviteTable struct {
		sync.RWMutex
		table map[string]*invite.Invite
	}

	catalogTable struct {
		sync.RWMutex
		cohorts map[string]*catalog.Cohort
		modules map[string]*catalog.Module
	}

	resourceTable struct {
		sync.RWMutex
		table map[string]*resource.Resource
	}

	invoiceTable struct {
		sync.RWMutex
		table    map[string]*invoice.Invoice
		counters map[int]int
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.Session
		rsvps map[string]map[string]*session.RSVP // sessionID -> userID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		invite:   &inviteTable{table: make(map[string]*invite.Invite)},
		catalog:  &catalogTable{cohorts: make(map[string]*catalog.Cohort), modules: make(map[string]*catalog.Module)},
		resource: &resourceTable{table: make(map[string]*resource.Resource)},
		invoice:  &invoiceTable{table: make(map[string]*invoice.Invoice), counters: make(map[int]int)},
		session:  &sessionTable{table: make(map[string]*session.Session), rsvps: make(map[string]map[string]*session.RSVP)},
	}
	return db, nil
}

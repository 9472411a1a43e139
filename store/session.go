package store

import (
	"context"
)

// Session is the object mapping a session id to its owning user. Sessions
// are created by the auth layer; this module only reads them.
type Session struct {
	ID        string
	UserID    string
	CreatedTs int64
}

// FindSession is the find condition for session.
type FindSession struct {
	ID     *string
	UserID *string
}

// DeleteSession is the delete request for session.
type DeleteSession struct {
	ID string
}

// CreateSession creates a new session.
func (s *Store) CreateSession(ctx context.Context, create *Session) (*Session, error) {
	session, err := s.driver.CreateSession(ctx, create)
	if err != nil {
		return nil, err
	}
	s.sessionCache.Set(ctx, session.ID, session)
	return session, nil
}

// GetSession gets a session with find condition.
func (s *Store) GetSession(ctx context.Context, find *FindSession) (*Session, error) {
	if find.ID != nil {
		if cached, ok := s.sessionCache.Get(ctx, *find.ID); ok {
			if session, ok := cached.(*Session); ok {
				return session, nil
			}
		}
	}

	list, err := s.driver.ListSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	session := list[0]
	s.sessionCache.Set(ctx, session.ID, session)
	return session, nil
}

// ListSessions lists sessions with find condition.
func (s *Store) ListSessions(ctx context.Context, find *FindSession) ([]*Session, error) {
	return s.driver.ListSessions(ctx, find)
}

// DeleteSession deletes a session.
func (s *Store) DeleteSession(ctx context.Context, delete *DeleteSession) error {
	if err := s.driver.DeleteSession(ctx, delete); err != nil {
		return err
	}
	s.sessionCache.Delete(ctx, delete.ID)
	return nil
}

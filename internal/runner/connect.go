package runner

import (
	"context"

	"github.com/vibesql/queryrunner/internal/database"
	"github.com/vibesql/queryrunner/internal/query"
)

type databaseSession struct {
	*query.Executor
	conn *database.Connection
}

func (s *databaseSession) Close() error {
	return s.conn.Close()
}

// DatabaseConnector returns a ConnectFunc opening a real database session.
func DatabaseConnector(config database.Config, opts ...query.Option) ConnectFunc {
	return func(ctx context.Context) (Session, error) {
		conn, err := database.Open(ctx, config)
		if err != nil {
			return nil, err
		}

		return &databaseSession{
			Executor: query.NewExecutor(conn.Conn(), opts...),
			conn:     conn,
		}, nil
	}
}

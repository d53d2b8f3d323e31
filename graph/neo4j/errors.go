package neo4j

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/graphqa/core"
)

// classify maps a driver error onto the core taxonomy. statementKind is used
// for errors raised by the statement itself or by a procedure it calls.
func classify(err error, op string, statementKind core.Kind) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		code := nerr.Code
		switch {
		case strings.HasPrefix(code, "Neo.ClientError.Security."):
			return core.NewError(core.KindDatabaseConnection, "", op, errors.Join(core.ErrAuthentication, err))
		case strings.HasPrefix(code, "Neo.TransientError."),
			code == "Neo.ClientError.Database.DatabaseNotFound",
			strings.HasPrefix(code, "Neo.ClientError.Cluster."):
			return core.NewError(core.KindDatabaseConnection, "", op, errors.Join(core.ErrServiceUnavailable, err))
		case strings.HasPrefix(code, "Neo.ClientError.Statement."),
			strings.HasPrefix(code, "Neo.ClientError.Procedure."):
			return core.NewError(statementKind, "", op, err)
		}
		return core.NewError(core.KindQueryExecution, "", op, err)
	}

	if neo4j.IsConnectivityError(err) {
		return core.NewError(core.KindDatabaseConnection, "", op, errors.Join(core.ErrServiceUnavailable, err))
	}
	if statementKind == core.KindDatabaseConnection {
		return core.NewError(core.KindDatabaseConnection, "", op, errors.Join(core.ErrServiceUnavailable, err))
	}
	return core.NewError(core.KindQueryExecution, "", op, err)
}

package report

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/whsock/internal/process"
	"github.com/lu-zhengda/whsock/internal/socket"
)

// TableReader reads one protocol's socket table.
type TableReader interface {
	Read(proto socket.Protocol) (*socket.Table, error)
}

// OwnerScanner builds the inode -> process map.
type OwnerScanner interface {
	Scan(ctx context.Context) (process.Map, error)
}

// Result is the report for one protocol.
type Result struct {
	Protocol  socket.Protocol
	Rows      []Row
	RowErrors []error // rows left out of the report
}

// Reporter produces snapshot reports.
type Reporter struct {
	Tables     TableReader
	Owners     OwnerScanner
	Correlator *Correlator
	Log        logrus.FieldLogger
}

// Run reads the socket table for proto, scans processes and correlates the
// two. An unreadable table fails the whole report with a
// *socket.TableUnreadableError; bad rows only drop themselves.
func (r *Reporter) Run(ctx context.Context, proto socket.Protocol) (*Result, error) {
	log := r.logger().WithField("proto", proto)

	table, err := r.Tables.Read(proto)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"path":    table.Path,
		"sockets": len(table.Records),
	}).Debug("read socket table")

	owners, err := r.Owners.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan processes: %w", err)
	}

	rows, stateErrs := r.Correlator.Correlate(table.Records, owners)

	rowErrs := make([]error, 0, len(table.RowErrors)+len(stateErrs))
	rowErrs = append(rowErrs, table.RowErrors...)
	rowErrs = append(rowErrs, stateErrs...)
	for _, e := range rowErrs {
		log.WithError(e).Warn("socket left out of report")
	}

	return &Result{
		Protocol:  proto,
		Rows:      rows,
		RowErrors: rowErrs,
	}, nil
}

func (r *Reporter) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultProcRoot is where the kernel exposes per-process metadata.
const DefaultProcRoot = "/proc"

// Ownership records which process holds a socket open.
type Ownership struct {
	Inode   uint64
	PID     int
	Cmdline string // empty when unreadable
}

// Map is a partial lookup from socket inode to its owning process.
type Map map[uint64]Ownership

// Lookup returns the owner of inode, if one was found during the scan.
func (m Map) Lookup(inode uint64) (Ownership, bool) {
	o, ok := m[inode]
	return o, ok
}

// ParseSocketLink extracts the inode from a descriptor target of the form
// "socket:[12345]".
func ParseSocketLink(target string) (uint64, bool) {
	rest, ok := strings.CutPrefix(target, "socket:[")
	if !ok {
		return 0, false
	}
	num, ok := strings.CutSuffix(rest, "]")
	if !ok || num == "" {
		return 0, false
	}
	inode, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}

// Scanner walks every process's file descriptors under a proc mount.
type Scanner struct {
	root    string
	workers int
	log     logrus.FieldLogger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers bounds the number of processes scanned concurrently.
// Values below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		s.workers = n
	}
}

// WithLogger sets the logger used for per-process diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scanner) {
		s.log = log
	}
}

// NewScanner creates a Scanner rooted at procRoot.
func NewScanner(procRoot string, opts ...Option) *Scanner {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	s := &Scanner{root: procRoot}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.NumCPU()
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		s.log = l
	}
	return s
}

// Scan builds the inode -> owner map from a full pass over all processes.
//
// Processes that exit mid-scan or deny access contribute nothing. When
// several processes hold the same socket, the lowest PID is reported,
// whatever the number of workers.
func (s *Scanner) Scan(ctx context.Context) (Map, error) {
	pids, err := s.listPIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	found := make([][]Ownership, len(pids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, pid := range pids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = s.scanProcess(pid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	owners := make(Map)
	for _, list := range found {
		for _, o := range list {
			if _, dup := owners[o.Inode]; !dup {
				owners[o.Inode] = o
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"processes": len(pids),
		"sockets":   len(owners),
	}).Debug("process scan complete")

	return owners, nil
}

// listPIDs returns the numeric entries of the proc root in ascending order.
func (s *Scanner) listPIDs() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids, nil
}

// scanProcess returns one Ownership per distinct socket inode held by pid.
func (s *Scanner) scanProcess(pid int) []Ownership {
	log := s.log.WithField("pid", pid)
	fdDir := filepath.Join(s.root, strconv.Itoa(pid), "fd")

	entries, err := os.ReadDir(fdDir)
	if err != nil {
		// Permission denied or the process already exited.
		log.WithError(err).Debug("skipping process")
		return nil
	}

	var inodes []uint64
	seen := make(map[uint64]struct{})
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(fdDir, e.Name()))
		if err != nil {
			log.WithError(err).WithField("fd", e.Name()).Debug("skipping descriptor")
			continue
		}
		inode, ok := ParseSocketLink(target)
		if !ok {
			continue
		}
		if _, dup := seen[inode]; dup {
			continue
		}
		seen[inode] = struct{}{}
		inodes = append(inodes, inode)
	}
	if len(inodes) == 0 {
		return nil
	}

	cmdline := s.readCmdline(pid)
	owned := make([]Ownership, len(inodes))
	for i, inode := range inodes {
		owned[i] = Ownership{Inode: inode, PID: pid, Cmdline: cmdline}
	}
	return owned
}

// readCmdline returns the NUL separated argv of pid joined with spaces.
func (s *Scanner) readCmdline(pid int) string {
	raw, err := os.ReadFile(filepath.Join(s.root, strconv.Itoa(pid), "cmdline"))
	if err != nil {
		s.log.WithError(err).WithField("pid", pid).Debug("unreadable cmdline")
		return ""
	}
	cmd := strings.TrimRight(string(raw), "\x00")
	return strings.ReplaceAll(cmd, "\x00", " ")
}

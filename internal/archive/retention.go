package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Info holds metadata for retention decisions.
type Info struct {
	Path      string
	Size      int64
	CreatedAt time.Time
}

// RetentionPolicy decides which archives to keep.
type RetentionPolicy interface {
	Apply(archives []Info) (keep []Info)
}

// CountPolicy keeps the N most recent archives.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount archives (assumed sorted newest-first).
func (p *CountPolicy) Apply(archives []Info) []Info {
	if len(archives) <= p.MaxCount {
		return archives
	}
	return archives[:p.MaxCount]
}

// AgePolicy keeps archives newer than MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
	Now    func() time.Time
}

// Apply keeps archives whose CreatedAt is within MaxAge of now.
func (p *AgePolicy) Apply(archives []Info) []Info {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)
	var keep []Info
	for _, a := range archives {
		if a.CreatedAt.After(cutoff) {
			keep = append(keep, a)
		}
	}
	return keep
}

// SizePolicy keeps archives until total size exceeds MaxTotalBytes.
// The newest archive is always kept.
type SizePolicy struct {
	MaxTotalBytes int64
}

// Apply keeps archives (newest-first) until adding the next would exceed the limit.
func (p *SizePolicy) Apply(archives []Info) []Info {
	var keep []Info
	var total int64
	for _, a := range archives {
		if total+a.Size > p.MaxTotalBytes && len(keep) > 0 {
			break
		}
		keep = append(keep, a)
		total += a.Size
	}
	return keep
}

// CompositePolicy keeps an archive if ANY sub-policy wants it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of archives kept by any sub-policy.
func (p *CompositePolicy) Apply(archives []Info) []Info {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, a := range policy.Apply(archives) {
			kept[a.Path] = true
		}
	}

	var result []Info
	for _, a := range archives {
		if kept[a.Path] {
			result = append(result, a)
		}
	}
	return result
}

// NewPolicy builds the union of the configured limits. maxAge and maxSize
// use ParseDuration and ParseSize syntax; empty strings and a zero count
// are skipped. It returns nil when no limit is configured.
func NewPolicy(maxCount int, maxAge, maxSize string) (RetentionPolicy, error) {
	var policies []RetentionPolicy
	if maxCount > 0 {
		policies = append(policies, &CountPolicy{MaxCount: maxCount})
	}
	if maxAge != "" {
		d, err := ParseDuration(maxAge)
		if err != nil {
			return nil, fmt.Errorf("archive.max_age: %w", err)
		}
		policies = append(policies, &AgePolicy{MaxAge: d})
	}
	if maxSize != "" {
		n, err := ParseSize(maxSize)
		if err != nil {
			return nil, fmt.Errorf("archive.max_size: %w", err)
		}
		policies = append(policies, &SizePolicy{MaxTotalBytes: n})
	}

	switch len(policies) {
	case 0:
		return nil, nil
	case 1:
		return policies[0], nil
	default:
		return &CompositePolicy{Policies: policies}, nil
	}
}

// List scans dir for archive files and returns them sorted newest-first.
// A missing directory yields no archives.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var archives []Info
	for _, e := range entries {
		if e.IsDir() || !isArchiveFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		a := Info{
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		if h, err := ReadHeader(a.Path); err == nil && !h.CreatedAt.IsZero() {
			a.CreatedAt = h.CreatedAt
		}
		archives = append(archives, a)
	}

	// File names embed the creation timestamp.
	sort.Slice(archives, func(i, j int) bool {
		return filepath.Base(archives[i].Path) > filepath.Base(archives[j].Path)
	})
	return archives, nil
}

// ApplyRetention deletes archives in dir not kept by the policy.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	archives, err := List(dir)
	if err != nil {
		return nil, err
	}

	keep := policy.Apply(archives)
	keepSet := make(map[string]bool, len(keep))
	for _, a := range keep {
		keepSet[a.Path] = true
	}

	for _, a := range archives {
		if keepSet[a.Path] {
			continue
		}
		if err := os.Remove(a.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(a.Path), err)
		}
		deleted = append(deleted, a.Path)
	}
	return deleted, nil
}

// ParseDuration parses duration strings like "30d", "2w", "720h".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}

// ParseSize parses size strings like "100MB", "1GB", "500KB" into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Longer suffixes first so "MB" is not read as "B".
	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}
	for _, ss := range suffixes {
		if strings.HasSuffix(s, ss.suffix) {
			num, err := strconv.ParseInt(strings.TrimSuffix(s, ss.suffix), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size: %q", s)
			}
			return num * ss.multiplier, nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	return num, nil
}

func isArchiveFile(name string) bool {
	return strings.HasPrefix(name, "socialgen-") && strings.HasSuffix(name, Extension)
}

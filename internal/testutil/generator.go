package testutil

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DataGenerator generates conn logs for benchmarks and volume tests. The
// same seed always yields the same log.
type DataGenerator struct {
	rand *rand.Rand
}

// NewDataGenerator creates a new data generator.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{rand: rand.New(rand.NewSource(seed))}
}

// Rows returns count rows in ascending time order. Origin addresses are
// drawn from addrs, or from 10.0.0.0/8 if addrs is empty; responder
// addresses are always random public ones.
func (g *DataGenerator) Rows(count int, addrs ...string) [][3]string {
	rows := make([][3]string, count)
	ts := 1517336042.0
	for i := range rows {
		ts += g.rand.Float64()
		orig := g.privateAddr()
		if len(addrs) > 0 {
			orig = addrs[g.rand.Intn(len(addrs))]
		}
		rows[i] = [3]string{strconv.FormatFloat(ts, 'f', 6, 64), orig, g.publicAddr()}
	}
	return rows
}

// GenerateFile writes a conn log of at least sizeStr bytes, e.g. "10MB",
// to filename. An existing file is kept as is.
func (g *DataGenerator) GenerateFile(filename, sizeStr string) error {
	size, err := ParseSize(sizeStr)
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if _, err := os.Stat(filename); err == nil {
		return nil
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := bufio.NewWriter(file)

	n, err := writer.WriteString(ZeekHeader("conn", connFields, connTypes))
	if err != nil {
		return err
	}
	written := int64(n)
	for i := 0; written < size; i++ {
		n, err := writer.WriteString(connRow(i, g.Rows(1)[0]))
		if err != nil {
			return err
		}
		written += int64(n)
	}
	if _, err := writer.WriteString(connClose); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func (g *DataGenerator) privateAddr() string {
	return fmt.Sprintf("10.%d.%d.%d", g.rand.Intn(256), g.rand.Intn(256), 1+g.rand.Intn(254))
}

func (g *DataGenerator) publicAddr() string {
	return fmt.Sprintf("%d.%d.%d.%d", 11+g.rand.Intn(150), g.rand.Intn(256), g.rand.Intn(256), 1+g.rand.Intn(254))
}

// ParseSize parses a size string like "10MB" or "512K" into bytes.
func ParseSize(sizeStr string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(sizeStr))
	if n := len(s); n > 1 && strings.ContainsRune("KMG", rune(s[n-1])) && s[n-2] >= '0' && s[n-2] <= '9' {
		s += "B"
	}

	suffixes := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}
	for _, suf := range suffixes {
		if !strings.HasSuffix(s, suf.suffix) {
			continue
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, suf.suffix)), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q", sizeStr)
		}
		return int64(num * float64(suf.multiplier)), nil
	}
	return strconv.ParseInt(s, 10, 64)
}

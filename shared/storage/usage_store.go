package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DayUsage records how many requests a credential has spent inside one
// provider quota day. Date is the day key in the provider's reset timezone.
type DayUsage struct {
	Date     string `json:"date"`
	Requests int    `json:"requests"`
}

// UsageStore persists per-credential daily request counts so a restart does
// not forget quota already spent. Minute-window counters are deliberately not
// persisted; they expire faster than any realistic restart.
type UsageStore struct {
	filePath string
}

func NewUsageStore(dataDir string) (*UsageStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &UsageStore{
		filePath: filepath.Join(dataDir, "credential_usage.json"),
	}, nil
}

type usageFile struct {
	Credentials map[string]DayUsage `json:"credentials"`
	SavedAt     time.Time           `json:"saved_at"`
}

// Load returns the persisted per-credential usage map, keyed by credential id.
func (us *UsageStore) Load() (map[string]DayUsage, error) {
	file, err := os.Open(us.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]DayUsage{}, nil
		}
		return nil, fmt.Errorf("failed to open usage file: %w", err)
	}
	defer file.Close()

	var data usageFile
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode usage data: %w", err)
	}
	if data.Credentials == nil {
		data.Credentials = map[string]DayUsage{}
	}
	return data.Credentials, nil
}

func (us *UsageStore) Save(credentials map[string]DayUsage) error {
	file, err := os.Create(us.filePath)
	if err != nil {
		return fmt.Errorf("failed to create usage file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(usageFile{Credentials: credentials, SavedAt: time.Now()}); err != nil {
		return fmt.Errorf("failed to encode usage data: %w", err)
	}
	return nil
}

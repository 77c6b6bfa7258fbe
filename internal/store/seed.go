package store

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML fixture format consumed by the seed command. Entries
// may carry pre-extracted resume text so demo data skips the extractor.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

type SeedUser struct {
	Name       string `yaml:"name"`
	Phone      string `yaml:"phone"`
	ResumeURL  string `yaml:"resume_url"`
	ResumeText string `yaml:"resume_text"`
	Category   string `yaml:"category"`
}

func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file %q: %w", path, err)
	}

	if len(seed.Users) == 0 {
		return nil, fmt.Errorf("seed file %q contains no users", path)
	}

	for i, user := range seed.Users {
		if user.Name == "" {
			return nil, fmt.Errorf("seed user %d: name is required", i+1)
		}
		if user.Phone == "" {
			return nil, fmt.Errorf("seed user %d (%s): phone is required", i+1, user.Name)
		}
	}

	return &seed, nil
}

// Seed loads every fixture user into the store, returning the number of
// created profiles. Phones are normalized the same way registration does.
func Seed(ctx context.Context, s Store, seed *SeedFile, logger *zap.Logger) (int, error) {
	created := 0

	for _, entry := range seed.Users {
		phone, err := NormalizePhone(entry.Phone)
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", entry.Name, err)
		}

		user, err := s.CreateUser(ctx, entry.Name, phone)
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", entry.Name, err)
		}

		if entry.ResumeText != "" || entry.ResumeURL != "" {
			if _, err := s.UpdateResume(ctx, user.ID, entry.ResumeURL, entry.ResumeText, entry.Category); err != nil {
				return created, fmt.Errorf("seed user %q resume: %w", entry.Name, err)
			}
		}

		created++
		logger.Debug("seeded user", zap.String("name", entry.Name), zap.String("id", user.ID))
	}

	return created, nil
}

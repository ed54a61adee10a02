package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/atelierhq/atelier/guard"
)

// containerName restricts namespace names to what we ever generate: uuid
// strings and the reserved "plugins" container. Keeps path traversal out.
var containerName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ContainerService stores each container as a directory under the data root.
// Only namespace provisioning lives here; reading and writing file bytes is
// handled by the generic storage route.
type ContainerService struct {
	root string
}

// NewContainerService creates a new ContainerService rooted at dataDir.
func NewContainerService(dataDir string) (*ContainerService, error) {
	root := filepath.Join(dataDir, "containers")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create container root: %w", err)
	}
	return &ContainerService{root: root}, nil
}

// Ensure ContainerService implements guard.ContainerStore
var _ guard.ContainerStore = (*ContainerService)(nil)

// CreateContainer creates the namespace; it fails if one already exists.
func (s *ContainerService) CreateContainer(ctx context.Context, name string) error {
	if !containerName.MatchString(name) {
		return fmt.Errorf("invalid container name %q", name)
	}
	if err := os.Mkdir(filepath.Join(s.root, name), 0o755); err != nil {
		return fmt.Errorf("failed to create container %s: %w", name, err)
	}
	return nil
}

// HasContainer reports whether the namespace exists.
func (s *ContainerService) HasContainer(name string) bool {
	info, err := os.Stat(filepath.Join(s.root, name))
	return err == nil && info.IsDir()
}

// EnsureContainer creates the namespace if it does not exist yet. Used at
// boot for the shared "plugins" container.
func (s *ContainerService) EnsureContainer(ctx context.Context, name string) error {
	if s.HasContainer(name) {
		log.Printf("Container %s already created", name)
		return nil
	}
	if err := s.CreateContainer(ctx, name); err != nil {
		return err
	}
	log.Printf("Container %s created", name)
	return nil
}

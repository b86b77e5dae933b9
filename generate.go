package servicectl

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// NativeDescriptor is the rendered platform artifact for one
// ServiceDescriptor: content plus its target path. Generate never
// writes; installation and dry-run/validate share the same generation
// output and the caller decides whether to persist it.
type NativeDescriptor struct {
	// Path is where the descriptor belongs on this platform
	Path string
	// Content is the rendered file body
	Content []byte
	// Mode is the file mode for the written descriptor
	Mode fs.FileMode
}

// Generate translates one logical descriptor into the native artifact
// for the platform. It is deterministic: identical descriptor,
// platform, and paths always produce byte-identical content. That
// property is what makes reinstall idempotent and golden tests
// possible.
func Generate(desc ServiceDescriptor, platform Platform, paths PathSet) (NativeDescriptor, error) {
	if err := desc.Validate(); err != nil {
		return NativeDescriptor{}, err
	}

	switch platform {
	case PlatformLinux:
		content, err := renderSystemdUnit(&desc)
		if err != nil {
			return NativeDescriptor{}, err
		}
		return NativeDescriptor{Path: paths.DescriptorPath, Content: content, Mode: DescriptorMode}, nil

	case PlatformDarwin:
		content, err := renderLaunchdPlist(&desc)
		if err != nil {
			return NativeDescriptor{}, err
		}
		return NativeDescriptor{Path: paths.DescriptorPath, Content: content, Mode: DescriptorMode}, nil

	case PlatformWindows:
		content, err := SCMParamsFromDescriptor(&desc).Render()
		if err != nil {
			return NativeDescriptor{}, err
		}
		return NativeDescriptor{Path: paths.DescriptorPath, Content: content, Mode: DescriptorMode}, nil

	default:
		return NativeDescriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
}

// Write persists the descriptor atomically: renameio stages the content
// in a temp file and renames it into place, so a failed generation or
// interrupted write never leaves a partial descriptor behind.
func (n NativeDescriptor) Write() error {
	if err := os.MkdirAll(filepath.Dir(n.Path), 0o755); err != nil {
		return fmt.Errorf("creating descriptor dir: %w", err)
	}
	if err := renameio.WriteFile(n.Path, n.Content, n.Mode); err != nil {
		return fmt.Errorf("writing descriptor %s: %w", n.Path, err)
	}
	return nil
}

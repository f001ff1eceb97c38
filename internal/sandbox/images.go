package sandbox

// GetImage returns the container image for a session template. A custom
// image in config takes precedence. Templates name the kind of app the
// agent scaffolds, not a specific toolchain version.
func GetImage(template string, config Config) string {
	if config.Image != "" {
		return config.Image
	}

	switch template {
	case "nextjs", "react", "node":
		return "node:alpine"
	case "go":
		return "golang:alpine"
	case "python":
		return "python:alpine"
	default:
		return "node:alpine"
	}
}

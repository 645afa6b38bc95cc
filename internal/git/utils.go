package git

import (
	"fmt"
	"os/user"
	"strings"

	"github.com/go-git/go-git/v5/config"
)

// DefaultAuthor returns "name <email>" from the git configuration visible from
// sourceFolder: the repository config merged with the global one when sourceFolder
// is inside a repository, the global config otherwise. The OS user name is used
// when git has no identity configured.
func DefaultAuthor(sourceFolder string) (string, error) {
	cfg, err := loadUserConfig(sourceFolder)
	if err == nil {
		if author := formatAuthor(cfg.User.Name, cfg.User.Email); author != "" {
			return author, nil
		}
		if author := formatAuthor(cfg.Author.Name, cfg.Author.Email); author != "" {
			return author, nil
		}
	}

	u, uerr := user.Current()
	if uerr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAuthor, uerr)
	}
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = strings.TrimSpace(u.Username)
	}
	if name == "" {
		return "", ErrNoAuthor
	}
	return name, nil
}

func loadUserConfig(sourceFolder string) (*config.Config, error) {
	if sourceFolder != "" {
		if repo, _, err := openRepository(sourceFolder); err == nil {
			return repo.ConfigScoped(config.GlobalScope)
		}
	}
	return config.LoadConfig(config.GlobalScope)
}

// formatAuthor joins a name and an email the way git prints an identity.
func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case name != "":
		return name
	case email != "":
		return "<" + email + ">"
	default:
		return ""
	}
}

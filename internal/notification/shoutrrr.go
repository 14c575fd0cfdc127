package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr.
// One sender fans out to every configured URL.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	types   map[Type]bool
	sender  *router.ServiceRouter
	timeout time.Duration
}

func NewShoutrrrProvider(name string, enabled bool, urls, supportedTypes []string, timeout time.Duration) *ShoutrrrProvider {
	sp := &ShoutrrrProvider{
		name:    strings.TrimSpace(name),
		enabled: enabled,
		urls:    slices.Clone(urls),
		types:   map[Type]bool{},
		timeout: timeout,
	}
	if sp.name == "" {
		sp.name = "shoutrrr"
	}
	if len(supportedTypes) == 0 {
		sp.types[TypeError] = true
		sp.types[TypeWarning] = true
		sp.types[TypeInfo] = true
	} else {
		for _, t := range supportedTypes {
			sp.types[Type(strings.ToLower(strings.TrimSpace(t)))] = true
		}
	}
	return sp
}

func (s *ShoutrrrProvider) GetName() string          { return s.name }
func (s *ShoutrrrProvider) IsEnabled() bool          { return s.enabled }
func (s *ShoutrrrProvider) SupportsType(t Type) bool { return s.types[t] }

// ValidateConfig builds the sender, which parses every URL.
func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if len(s.urls) == 0 {
		return errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		// shoutrrr echoes the offending URL, tokens included
		return errors.Newf("invalid notification URL: %s", logger.RedactSensitiveData(err.Error())).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	s.sender = sender
	if s.timeout > 0 {
		s.sender.Timeout = s.timeout
	}
	s.sender.SetLogger(log.New(io.Discard, "", 0))
	return nil
}

func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if s.sender == nil {
		return fmt.Errorf("shoutrrr sender not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, e := range s.sender.Send(n.Message, &params) {
		if e != nil {
			return errors.Newf("push via %s failed: %s", s.name, logger.RedactSensitiveData(e.Error())).
				Component("notification").
				Category(errors.CategoryIntegration).
				Build()
		}
	}
	return nil
}

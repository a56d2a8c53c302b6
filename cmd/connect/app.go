package connect

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/platformeng/dataconnect/pkg/catalog"
	"github.com/platformeng/dataconnect/pkg/config"
	"github.com/platformeng/dataconnect/pkg/creds"
	"github.com/platformeng/dataconnect/pkg/infra"
	"github.com/platformeng/dataconnect/pkg/profile"
	"github.com/platformeng/dataconnect/pkg/store"
	"github.com/platformeng/dataconnect/pkg/supervisor"
)

// app bundles the collaborators every command needs. Commands construct it
// lazily in their run() so flag parsing errors surface before any state is
// touched.
type app struct {
	settings config.Settings
	catalog  *catalog.Catalog
	store    *store.Store
	history  *store.History
	profiles *profile.Generator
	super    *supervisor.Supervisor
}

func newApp() (*app, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	st, err := store.New(settings.TunnelsDir(), settings.ProfilesDir())
	if err != nil {
		return nil, errors.Wrap(err, "open state store")
	}

	history, err := store.OpenHistory(settings.HistoryPath())
	if err != nil {
		// History is diagnostics only, never block tunnel management on it.
		log.Warn().Err(err).Msg("session history unavailable")
		history = nil
	}

	cat := catalog.Default()
	gen := &profile.Generator{
		Store:       st,
		Endpoints:   &infra.StackOutputs{Path: settings.StackOutputsPath()},
		BastionUser: "platform-user",
	}

	var cluster infra.ClusterManager
	if settings.KubeconfigPath != "" {
		cluster = &infra.KubeconfigCluster{KubeconfigPath: settings.KubeconfigPath}
	}

	return &app{
		settings: settings,
		catalog:  cat,
		store:    st,
		history:  history,
		profiles: gen,
		super: supervisor.New(supervisor.Options{
			Catalog:     cat,
			Store:       st,
			Credentials: &creds.Resolver{},
			Profiles:    gen,
			History:     history,
			Cluster:     cluster,
			Settings:    settings,
		}),
	}, nil
}

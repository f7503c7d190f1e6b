// Package modules assembles the default module groups for the web server.
package modules

import (
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/modules/adminagent"
	"github.com/prestigeprep/prep/internal/services/web/modules/admincontent"
	"github.com/prestigeprep/prep/internal/services/web/modules/adminwebagent"
	"github.com/prestigeprep/prep/internal/services/web/modules/agentapi"
	"github.com/prestigeprep/prep/internal/services/web/modules/attendance"
	"github.com/prestigeprep/prep/internal/services/web/modules/contentapi"
	"github.com/prestigeprep/prep/internal/services/web/modules/dashboard"
	"github.com/prestigeprep/prep/internal/services/web/modules/drills"
	"github.com/prestigeprep/prep/internal/services/web/modules/public"
	"github.com/prestigeprep/prep/internal/services/web/modules/publicauth"
	"github.com/prestigeprep/prep/internal/services/web/modules/recommended"
)

// PublicModules returns the pages anyone may visit.
func PublicModules(deps module.Dependencies) []module.Module {
	return []module.Module{
		public.New(deps),
		publicauth.New(deps, publicauth.WithHTTPClient(deps.HTTPClient)),
	}
}

// ProtectedModules returns the signed-in student pages.
func ProtectedModules(deps module.Dependencies) []module.Module {
	return []module.Module{
		dashboard.New(deps),
		drills.New(deps),
		attendance.New(deps),
		recommended.New(deps),
	}
}

// AdminModules returns the admin pages. Agent pages are included only
// when their supervisor is configured.
func AdminModules(deps module.Dependencies) []module.Module {
	mods := []module.Module{admincontent.New(deps)}
	if deps.Generator != nil {
		mods = append(mods, adminagent.New(deps))
	}
	if deps.WebAgent != nil {
		mods = append(mods, adminwebagent.New(deps))
	}
	return mods
}

// APIModules returns the JSON APIs.
func APIModules(deps module.Dependencies) []module.Module {
	return []module.Module{
		contentapi.New(deps),
		agentapi.New(deps),
	}
}

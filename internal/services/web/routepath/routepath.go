// Package routepath holds the web route paths shared by modules and
// templates.
package routepath

import "net/url"

const (
	Home    = "/"
	Up      = "/up"
	Static  = "/static/"
	Privacy = "/privacy"
	Contact = "/contact"

	Methods       = "/methods"
	MethodsPrefix = "/methods/"

	Login          = "/login"
	LoginDev       = "/login/dev"
	Logout         = "/logout"
	GoogleStart    = "/auth/google/start"
	GoogleCallback = "/auth/google/callback"

	Dashboard    = "/dashboard"
	Drills       = "/drills"
	DrillsAnswer = "/drills/answer"
	Attendance   = "/attendance"
	Recommended  = "/recommended"
	Account      = "/account"

	AdminContent       = "/admin/content"
	AdminContentImport = "/admin/content/import"
	AdminAgent         = "/admin/agent"
	AdminAgentPrefix   = "/admin/agent/"
	AdminWeb           = "/admin/web"
	AdminWebPrefix     = "/admin/web/"
	AdminWebLogStream  = "/admin/web/log/stream"

	APIPrefix      = "/api/"
	APICurrentSet  = "/api/currentSet"
	APIItems       = "/api/items"
	APILoadSet     = "/api/loadSet"
	APIContentSets = "/api/contentSets"
	APIIngest      = "/api/ingest"
	APICheckin     = "/api/checkin"
	APILocks       = "/api/locks"
	APIAttempts    = "/api/attempts"
	APIDiag        = "/api/diag"
	APIWebAgentLog = "/api/webagent/log"

	APIPushItems = "/api/webagent/pushItems"
	APIReadDraft = "/api/webagent/readDraft"
	APIBuildSet  = "/api/buildSet"
)

// Method returns the page path for a methodology slug.
func Method(slug string) string {
	return MethodsPrefix + url.PathEscape(slug)
}

// LoginWithNext returns the login path that returns to next afterwards.
func LoginWithNext(next string) string {
	if next == "" || next == Home {
		return Login
	}
	return Login + "?next=" + url.QueryEscape(next)
}

package orchestrator

import "strings"

// sessionIdentifiers is the delegated-session-id / user-session-id /
// session-index triple threaded into player-response headers.
type sessionIdentifiers struct {
	DelegatedSessionID string
	UserSessionID      string
	SessionIndex       *int
}

// parseDataSyncID applies the §4.7 splitting rule: split into at most two
// parts on "||"; both present and the second non-empty -> (first, second);
// only one -> (none, first); neither -> (none, none).
func parseDataSyncID(dataSyncID string) (delegated, user string) {
	dataSyncID = strings.TrimSpace(dataSyncID)
	if dataSyncID == "" {
		return "", ""
	}
	parts := strings.SplitN(dataSyncID, "||", 2)
	if len(parts) == 2 {
		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])
		if second != "" {
			return first, second
		}
		return "", first
	}
	return "", strings.TrimSpace(parts[0])
}

// resolveSessionIdentifiers applies the precedence explicit args -> parsed
// data_sync_id -> searched ytcfg/initial-pr blobs.
func resolveSessionIdentifiers(explicit sessionIdentifiers, dataSyncID string, blobs []map[string]any) sessionIdentifiers {
	out := explicit

	if out.DelegatedSessionID == "" && out.UserSessionID == "" {
		if delegated, user := parseDataSyncID(dataSyncID); delegated != "" || user != "" {
			out.DelegatedSessionID = delegated
			out.UserSessionID = user
		}
	}

	for _, blob := range blobs {
		if out.DelegatedSessionID == "" {
			if v, ok := blob["DELEGATED_SESSION_ID"].(string); ok && v != "" {
				out.DelegatedSessionID = v
			}
		}
		if out.UserSessionID == "" {
			if v, ok := blob["USER_SESSION_ID"].(string); ok && v != "" {
				out.UserSessionID = v
			}
		}
		if out.DelegatedSessionID == "" && out.UserSessionID == "" {
			if v, ok := blob["DATASYNC_ID"].(string); ok && v != "" {
				delegated, user := parseDataSyncID(v)
				out.DelegatedSessionID = delegated
				out.UserSessionID = user
			}
		}
		if out.DelegatedSessionID == "" && out.UserSessionID == "" {
			if v := lookupPath(blob, "responseContext", "mainAppWebResponseContext", "datasyncId"); v != "" {
				delegated, user := parseDataSyncID(v)
				out.DelegatedSessionID = delegated
				out.UserSessionID = user
			}
		}
		if out.SessionIndex == nil {
			switch v := blob["SESSION_INDEX"].(type) {
			case string:
				out.SessionIndex = sessionIndexFromString(v)
			case float64:
				n := int(v)
				out.SessionIndex = &n
			}
		}
	}
	return out
}

func lookupPath(blob map[string]any, path ...string) string {
	var cur any = blob
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}

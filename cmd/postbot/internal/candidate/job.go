// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package candidate

import (
	"regexp"
	"strings"
	"sync"
)

// Job is a job listing parsed from a channel message.
type Job struct {
	Company string
	Role    string
	Batch   string
}

var jobFieldRe = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[\s*•\-]*(company|role|position|batch|eligible batch)\s*[:\-–]\s*(.+?)\s*$`)
})

// ParseJob extracts "Company:", "Role:" and "Batch:" lines from text. The
// first occurrence of each field wins.
func ParseJob(text string) Job {
	var j Job
	for _, m := range jobFieldRe().FindAllStringSubmatch(text, -1) {
		val := strings.Trim(m[2], "*_ ")
		var field *string
		switch strings.ToLower(m[1]) {
		case "company":
			field = &j.Company
		case "role", "position":
			field = &j.Role
		case "batch", "eligible batch":
			field = &j.Batch
		}
		if field != nil && *field == "" {
			*field = val
		}
	}
	return j
}

//go:build debuglog_unguarded

package debuglog

import "github.com/omaskery/tracelog/pkg/guard"

const Guarded = false

type defaultSection = guard.None

func newDefaultSection() defaultSection {
	return guard.None{}
}

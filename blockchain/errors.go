// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

// TemplateError is returned when a getblocktemplate response is missing a required
// field or has a field of the wrong size/shape.
type TemplateError struct {
	Field  string
	Reason string
}

func (e *TemplateError) Error() string {
	if e.Field == "" {
		return "block template error: " + e.Reason
	}
	return "block template error: field " + e.Field + ": " + e.Reason
}

// TargetError is returned by CompactToTarget when the compact-bits encoding is
// outside the range this chain's policy accepts.
type TargetError struct {
	Bits   uint32
	Reason string
}

func (e *TargetError) Error() string {
	return "invalid compact bits: " + e.Reason
}

// SubmissionRejected is returned when submitblock reports a status other than one
// of the accepted outcomes (null, duplicate, inconclusive, duplicate-inconclusive).
type SubmissionRejected struct {
	Status string
}

func (e *SubmissionRejected) Error() string {
	return "block submission rejected: " + e.Status
}

// Package security derives a reviewable security posture from an engine
// configuration. The root package exposes it as Engine.SecurityReport.
package security

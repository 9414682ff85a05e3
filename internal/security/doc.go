// Package security derives a posture report from engine configuration, for
// startup logs and health tooling.
package security

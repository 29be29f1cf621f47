// Package common holds small shared interfaces used across onvifd's
// collaborators, currently just graceful-shutdown coordination.
package common

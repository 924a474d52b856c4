// Package jibe is a client for the jibe backend's read-only /data API.
package jibe

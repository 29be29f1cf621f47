// Package config loads and validates the ONVIF services daemon's INI
// configuration file, and supports watching it for changes.
//
// The on-disk format is INI with sections onvif, logging, main_stream,
// sub_stream, imaging, discovery, and platform. Missing keys fall back
// to documented defaults (see Loader.setDefaults) rather than failing
// the load; values are validated for range and consistency once after
// unmarshalling (see Validate).
//
// Environment variables of the form ONVIFD_SECTION_KEY override file
// values, matching the precedence Viper applies for its other callers
// in this codebase.
package config

// Package confloader layers goPortal CLI configuration from a YAML file,
// GOPORTAL_* environment variables and explicit overrides, in that order of
// increasing priority, using koanf.
//
// Keys are lower-case and dot-separated. Environment variables map onto them
// by dropping the prefix, lower-casing and turning every underscore into a
// dot, so GOPORTAL_API_URL sets api.url. Keys therefore never contain
// underscores.
//
// # What this package must NOT do
//
//   - Know the goPortal Config type. Callers unmarshal into their own
//     koanf-tagged structs.
package confloader

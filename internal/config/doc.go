// Package config loads metafetch's TOML configuration.
//
// Values are resolved in order: built-in defaults, the config file, then
// environment fallbacks (TMDB_API_KEY when no key is configured,
// METAFETCH_REDIS_ADDR overriding cache.redis_addr).
package config

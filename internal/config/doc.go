/*
Package config provides centralized configuration management for vaultwatch.

Configuration is layered: built-in defaults, then an optional YAML file,
then environment variables, with environment variables winning. Secrets
(the object-store connection string and the encryption passphrase) are
read only from the environment and never accepted from the YAML file.

# Configuration Sources

  - Defaults: sensible built-in values for every operational setting
  - Config file: optional config.yaml, found via $CONFIG_PATH or a
    short list of conventional paths
  - Environment variables: VAULTWATCH_* for operational settings, plus
    the four unprefixed variables below; the first two have no YAML
    equivalent, the last two override azure.container_name and
    device.id when set

# Secrets (environment-bound)

	AZURE_STORAGE_CONNECTION_STRING   object-store connection string
	BACKUP_ENCRYPTION_KEY             passphrase for per-record AEAD keys
	AZURE_CONTAINER_NAME               object-store container (default: backups)
	DEVICE_ID                          this agent's device identifier (default: default-device)

# Validation

Config.Validate() is called once at startup and returns a single,
descriptive error on the first invalid field. Startup failure exits
with status 1.
*/
package config

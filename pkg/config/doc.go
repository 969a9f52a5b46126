/*
Package config loads drover's YAML configuration.

Load reads a single YAML file, fills unset fields from Default, and
validates the result; a missing file silently yields the defaults so the
CLI works with flags alone. Only the controller endpoint has no usable
default and is therefore required at the command layer rather than here.
*/
package config

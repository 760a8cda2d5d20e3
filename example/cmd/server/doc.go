// Command server runs the availability JSON API on PostgreSQL.
//
// Configuration comes from the environment, optionally loaded from a .env file,
// see config.LoadServerConfig for the variables.
package main

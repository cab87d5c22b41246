// Package mongo stores stream event logs in MongoDB.
//
// Build the low-level client with clients/mongo and pass it to NewStore to
// obtain a runlog.Store.
package mongo

// Package fileutil holds small filesystem helpers shared by the preference
// store and the config writer.
package fileutil

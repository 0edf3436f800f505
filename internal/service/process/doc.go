// Package process inspects and starts local processes.
//
// Running uses go-ps to find instances of an artifact that is currently
// executing, which decides how a new version can replace it. Start launches a
// promoted artifact as the next stage without waiting for it.
package process

// Command depot is a dependency manager for LuaRocks packages: it resolves
// constraint sets against the registry manifest and pins the result in a
// lockfile.
package main

func main() {
	Execute()
}

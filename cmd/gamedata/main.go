// Command gamedata edits game-design tables and moves them to and from CSV.
//
// Quick start:
//
//	gamedata load             # build every table from the CSV folder
//	gamedata serve --watch    # web UI and API, re-importing edited CSVs
//	gamedata export --all     # write every table back to the CSV folder
package main

func main() {
	Execute()
}

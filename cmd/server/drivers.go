package main

// sqlite backs legacy.driver=sqlite for local runs against a PRMS copy.
import _ "modernc.org/sqlite"

/*
Package compiler translates LilC source into MIPS assembly text.

Process of compilation

	Program Text ->
		parse ->
	Abstract Syntax Tree (ast) ->
		analyze (resolve, check) ->
	Annotated AST (ast + symtab) ->
		back ->
	Assembly Text

The assembly can be executed with the sim package.
*/
package compiler

// Package infra contém a implementação Redis do cache imutável.
package infra

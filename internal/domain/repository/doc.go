// Package repository define los tipos de dominio y las interfaces de
// persistencia del core de autenticación. Las implementaciones viven en
// internal/store; los services dependen solo de estas interfaces.
package repository

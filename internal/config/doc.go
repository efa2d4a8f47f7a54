// Package config loads and validates medlemsportal configuration.
//
// Configuration is YAML with ${ENV_VAR} expansion, so secrets like the
// JWT signing key and SMTP password can live in the environment:
//
//	server:
//	  http_addr: ":8080"
//	  base_url: "https://portal.example.org"
//	  production: true
//	database:
//	  path: "/var/lib/medlemsportal/portal.db"
//	auth:
//	  jwt_secret: "${PORTAL_JWT_SECRET}"
//	webauthn:
//	  rp_id: "portal.example.org"
//	  origin: "https://portal.example.org"
//	  app_name: "Medlemsportal"
//	smtp:
//	  host: "smtp.example.org"
//	  port: 587
//	  user: "${SMTP_USER}"
//	  pass: "${SMTP_PASS}"
//	  from: "noreply@portal.example.org"
//
// All components receive the values they need at construction; nothing
// reads configuration ambiently.
package config

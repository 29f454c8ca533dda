// internal/config/template.go
package config

// Template is the annotated configuration written by the template command
const Template = `# FormScrapexter configuration
# Environment variables are expanded: ${MONGO_URI}

# One URL per line; blank lines and lines starting with # are skipped
urls_file: urls.txt

output:
  # csv, json, excel, sqlite, postgresql, mysql or mongodb
  format: csv
  file: form_fields_new.csv
  # SQL page table; field tables get _fields and _additional suffixes
  table: form_pages
  # Connection string for postgresql, mysql and mongodb
  dsn: ""
  database: ""
  collection: form_pages

crawl:
  batch_size: 20
  # Session recoveries per URL
  max_retries: 2
  page_timeout: 30s
  # Minimum interval between navigations
  delay: 1s
  # Defaults to the output file with a .checkpoint suffix
  checkpoint: ""

browser:
  # chromedp, rod or static
  driver: chromedp
  headless: true
  viewport_width: 1920
  viewport_height: 1080
  wait_delay: 0s
  # upper bound for reading the rendered page
  snapshot_timeout: 30s
  disable_images: false
  # DevTools endpoint of an already running browser
  remote_url: ""
  # rotate takes the next agent for every browser session, random picks one
  user_agent_mode: rotate
  user_agents: []

logging:
  # debug, info, warn or error
  level: info
  # text, json or logfmt
  format: text
  file: form_scraper.log

monitoring:
  enabled: false
  listen_address: ":9090"

# Extra patterns per canonical field, tried after the built-in ones.
# Patterns containing ".*" are regular expressions.
patterns:
  City: ["ville"]
`
